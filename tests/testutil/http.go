package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
)

// HTTPTestCase drives a single handler invocation: request shape in,
// expected status and body fields out. Setup and Validate hooks cover
// anything the declarative fields cannot.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           interface{}
	Headers        map[string]string
	Params         map[string]string // route params, e.g. provider or id
	ExpectedStatus int
	ExpectedBody   map[string]interface{}
	Setup          func(t *testing.T, tc *TestContext)
	Validate       func(t *testing.T, tc *TestContext)
}

// RunHTTPTestCases runs a slice of HTTP test cases against a handler,
// each as its own subtest.
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase builds a request from the case, invokes the handler
// directly against it and checks the declared expectations.
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) {
	t.Helper()

	ctx := tc.newContext(t)
	if tc.Setup != nil {
		tc.Setup(t, ctx)
	}

	handler(ctx.Context)

	tc.check(t, ctx)
}

// newContext assembles the gin test context for the case.
func (tc HTTPTestCase) newContext(t *testing.T) *TestContext {
	t.Helper()

	method, path := tc.Method, tc.Path
	if method == "" {
		method = http.MethodGet
	}
	if path == "" {
		path = "/"
	}

	req := httptest.NewRequest(method, path, tc.bodyReader(t))
	if tc.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tc.Headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	c.Request = req

	// Handlers resolve :provider and :id through c.Param, which bypasses
	// the router in CreateTestContext, so params are injected directly.
	for k, v := range tc.Params {
		c.Params = append(c.Params, gin.Param{Key: k, Value: v})
	}

	return &TestContext{Context: c, Recorder: w, Engine: engine}
}

func (tc HTTPTestCase) bodyReader(t *testing.T) io.Reader {
	t.Helper()

	if tc.Body == nil {
		return nil
	}
	raw, err := json.Marshal(tc.Body)
	require.NoError(t, err, "marshal request body")
	return bytes.NewReader(raw)
}

// check applies the case's declarative expectations, then the Validate hook.
func (tc HTTPTestCase) check(t *testing.T, ctx *TestContext) {
	t.Helper()

	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, ctx.ResponseCode(), "unexpected status code")
	}

	if tc.ExpectedBody != nil {
		body := JSONResponse(t, ctx)
		for key, want := range tc.ExpectedBody {
			assert.Equal(t, want, body[key], "unexpected value for %q", key)
		}
	}

	if tc.Validate != nil {
		tc.Validate(t, ctx)
	}
}

// JSONResponse parses the response body as JSON.
func JSONResponse(t *testing.T, tc *TestContext) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	err := json.Unmarshal(tc.ResponseBody(), &result)
	require.NoError(t, err, "parse JSON response")
	return result
}

// JSONResponseAs parses the response body into the provided struct.
func JSONResponseAs[T any](t *testing.T, tc *TestContext) T {
	t.Helper()

	var result T
	err := json.Unmarshal(tc.ResponseBody(), &result)
	require.NoError(t, err, "parse JSON response")
	return result
}

// AssertSuccessResponse asserts the envelope has success=true and no error.
func AssertSuccessResponse(t *testing.T, tc *TestContext) {
	t.Helper()

	resp := JSONResponseAs[dto.Response](t, tc)
	assert.True(t, resp.Success, "expected a success envelope")
	assert.Nil(t, resp.Error, "expected no error in envelope")
}

// AssertErrorResponse asserts the envelope carries the given error code.
func AssertErrorResponse(t *testing.T, tc *TestContext, expectedCode string) {
	t.Helper()

	resp := JSONResponseAs[dto.Response](t, tc)
	assert.False(t, resp.Success, "expected an error envelope")
	require.NotNil(t, resp.Error, "expected error details in envelope")
	assert.Equal(t, expectedCode, resp.Error.Code)
}
