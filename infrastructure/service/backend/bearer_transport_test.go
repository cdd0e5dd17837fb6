package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/rankboard/portalgate/domain/error"
)

type sequenceTokens struct {
	tokens []string
	errs   []error
	calls  int
}

func (s *sequenceTokens) AccessToken(ctx context.Context) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.tokens) {
		return s.tokens[i], err
	}
	return "", err
}

func TestBearerTransport_ResolvesTokenPerRequest(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
	}))
	defer server.Close()

	tokens := &sequenceTokens{
		tokens: []string{"T1", "T2", ""},
		errs:   []error{nil, nil, apperr.ErrNoSession()},
	}
	client := NewHTTPClient(tokens, nil)

	for i := 0; i < 3; i++ {
		resp, err := client.Get(server.URL + "/api/keywords")
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, []string{"Bearer T1", "Bearer T2", ""}, seen)
	assert.Equal(t, 3, tokens.calls)
}

func TestBearerTransport_ReplacesCallerHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client := NewHTTPClient(&sequenceTokens{errs: []error{apperr.ErrDecode("tokens", errors.New("bad"))}}, nil)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer forged")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, got)
	assert.Equal(t, "Bearer forged", req.Header.Get("Authorization"), "caller request is not mutated")
}

func TestBearerTransport_StorageFailureAborts(t *testing.T) {
	client := NewHTTPClient(&sequenceTokens{errs: []error{apperr.ErrPersistenceFailure("read tokens", errors.New("redis down"))}}, nil)

	_, err := client.Get("http://127.0.0.1:1/api")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPersistenceFailure("", nil)))
}
