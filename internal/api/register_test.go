package api_test

import (
	"net/http"
	"strings"
	"testing"

	"git.sr.ht/~jakintosh/passgate/internal/service"
	"git.sr.ht/~jakintosh/passgate/internal/testutil"
)

func TestRegister_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// valid registration returns the profile
	body := `{
		"email": "a@example.com",
		"password": "secret123"
	}`
	var res envelope[service.Profile]
	result := testutil.PostJSON(env.Router, "/api/auth/register", body, &res)
	testutil.ExpectStatus(t, http.StatusCreated, result)

	if res.Status != "success" || res.Code != http.StatusCreated {
		t.Errorf("envelope = %s/%d, want success/201", res.Status, res.Code)
	}
	if res.Message != nil {
		t.Errorf("message = %q, want null", *res.Message)
	}
	if res.Data.Email != "a@example.com" {
		t.Errorf("email = %s, want a@example.com", res.Data.Email)
	}
	if strings.Contains(string(result.Body), "secret123") {
		t.Error("response leaks the password")
	}
	if strings.Contains(string(result.Body), "$2a$") {
		t.Error("response leaks the password hash")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	body := `{"email": "a@example.com", "password": "secret123"}`
	var res envelope[any]
	result := testutil.PostJSON(env.Router, "/api/auth/register", body, &res)
	expectFailure(t, http.StatusBadRequest, "email already exists", result, &res)
}

func TestRegister_InvalidInput(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	cases := map[string]string{
		"bad email":      `{"email": "nope", "password": "secret123"}`,
		"missing email":  `{"password": "secret123"}`,
		"short password": `{"email": "a@example.com", "password": "123"}`,
	}
	for name, body := range cases {
		var res envelope[any]
		result := testutil.PostJSON(env.Router, "/api/auth/register", body, &res)
		if result.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, result.Code)
		}
	}
}

func TestRegister_InvalidJSON(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	var res envelope[any]
	result := testutil.PostJSON(env.Router, "/api/auth/register", `{"email":`, &res)
	expectFailure(t, http.StatusBadRequest, "invalid JSON body", result, &res)
}

func TestRegister_UnsupportedContentType(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// non-JSON content type is rejected
	var res envelope[any]
	result := testutil.Post(env.Router, "/api/auth/register", "email=a@example.com", &res,
		testutil.Header{Key: "Content-Type", Value: "application/x-www-form-urlencoded"})
	expectFailure(t, http.StatusUnsupportedMediaType, "content type must be application/json", result, &res)
}

func TestRegister_ContentTypeWithCharset(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	body := `{"email": "a@example.com", "password": "secret123"}`
	result := testutil.Post(env.Router, "/api/auth/register", body, nil,
		testutil.Header{Key: "Content-Type", Value: "application/json; charset=utf-8"})
	testutil.ExpectStatus(t, http.StatusCreated, result)
}

func TestRegister_BodyTooLarge(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	body := `{"email": "a@example.com", "password": "` + strings.Repeat("x", 2<<20) + `"}`
	var res envelope[any]
	result := testutil.PostJSON(env.Router, "/api/auth/register", body, &res)
	expectFailure(t, http.StatusRequestEntityTooLarge, "request body too large", result, &res)
}
