package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/service"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/store"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/directory"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
)

var signingKey = []byte("test-signing-key")

func newTestServer(t *testing.T) (*httptest.Server, *directory.InMemory) {
	t.Helper()
	dir := directory.NewInMemory()
	dir.PutPlace(directory.Place{ID: "place-1", Name: "Harbour Bar", City: "sydney"})
	dir.PutActor(directory.Actor{ID: "hm-1", UserName: "hm", Role: roles.HeadManager, PlaceID: "place-1"})
	dir.PutActor(directory.Actor{ID: "staff-1", UserName: "staff", Role: roles.Staff, PlaceID: "place-1"})
	dir.PutPerson(directory.Person{ID: "person-1", Name: "John", LastName: "Doe"})

	svc := service.New(store.NewInMemory(), dir)
	handler := NewHandler(svc, nil)
	srv := httptest.NewServer(handler.Router(signingKey))
	t.Cleanup(srv.Close)
	return srv, dir
}

func tokenFor(t *testing.T, actorID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   actorID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(signingKey)
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestCreateBanEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	token := tokenFor(t, "hm-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/bans", token, map[string]any{
		"personId":       "person-1",
		"placeIds":       []string{"place-1"},
		"incidentNumber": 4242,
		"startingDate":   "2026-06-01T00:00:00Z",
		"endingDate":     "2026-07-01T00:00:00Z",
		"motives":        []string{"fighting"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Ban struct {
			ID             string `json:"id"`
			IncidentNumber int64  `json:"incidentNumber"`
		} `json:"ban"`
		Approvals []struct {
			PlaceID string `json:"placeId"`
			Status  string `json:"status"`
		} `json:"approvals"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, int64(4242), created.Ban.IncidentNumber)
	require.Len(t, created.Approvals, 1)
	assert.Equal(t, "approved", created.Approvals[0].Status)

	// the staff member of the same city now sees it
	listResp := doJSON(t, http.MethodGet, srv.URL+"/bans", tokenFor(t, "staff-1"), nil)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var listed []json.RawMessage
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listed))
	assert.Len(t, listed, 1)

	// history is reachable and carries the created entry
	histResp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/bans/%s/history", srv.URL, created.Ban.ID), token, nil)
	defer histResp.Body.Close()
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var trail []struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&trail))
	require.Len(t, trail, 1)
	assert.Equal(t, "created", trail[0].Action)
}

func TestErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	// staff may not create bans
	resp := doJSON(t, http.MethodPost, srv.URL+"/bans", tokenFor(t, "staff-1"), map[string]any{
		"personId":       "person-1",
		"placeIds":       []string{"place-1"},
		"incidentNumber": 1,
		"startingDate":   "2026-06-01T00:00:00Z",
		"endingDate":     "2026-07-01T00:00:00Z",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "forbidden", body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/bans", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/bans", "not-a-token", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublicPreflightNeedsNoToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/bans/check-places", "", map[string]any{
		"personId": "person-1",
		"placeIds": []string{"place-1"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Banned bool `json:"banned"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Banned)

	bannedResp := doJSON(t, http.MethodGet, srv.URL+"/persons/person-1/banned", "", nil)
	defer bannedResp.Body.Close()
	assert.Equal(t, http.StatusOK, bannedResp.StatusCode)
}
