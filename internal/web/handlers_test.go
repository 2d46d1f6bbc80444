package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jaminalder/tic-tac-toe-history/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService()
	h := NewServer(s, Options{})
	return s, h
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<!doctype html>") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
	if strings.Contains(body, "id=\"resume\"") {
		t.Fatalf("no resume link expected without a session")
	}
}

func TestIndexOffersResume(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: s.ID})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), "/game/"+s.ID) {
		t.Fatalf("expected resume link to %s, got %q", s.ID, rr.Body.String())
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, h := newTestServer(t)
	req := httptest.NewRequest("POST", "/game", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
	if _, ok := svc.Get(strings.TrimPrefix(loc, "/game/")); !ok {
		t.Fatalf("redirect target is not a live session")
	}
	var cookie string
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c.Value
		}
	}
	if "/game/"+cookie != loc {
		t.Fatalf("expected session cookie for %q, got %q", loc, cookie)
	}
}

func TestGamePage(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(s.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Tic-Tac-Toe",
		"Next player: X",
		"Start</button>",
		"hx-ext=\"sse\"",
		"/game/" + s.ID + "/events",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page; got body: %q", want, body)
		}
	}
	if n := strings.Count(body, "name=\"cell\""); n != 9 {
		t.Fatalf("expected 9 cells, got %d", n)
	}
}

func TestUnknownGameIs404(t *testing.T) {
	_, h := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{"GET", "/game/missing"},
		{"POST", "/game/missing/play"},
		{"POST", "/game/missing/jump"},
		{"POST", "/game/missing/restart"},
		{"GET", "/game/missing/state"},
		{"GET", "/game/missing/events"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("cell=0&step=0"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()

	rr := postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {"0"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "id=\"game\"") || strings.Contains(body, "<!doctype html>") {
		t.Fatalf("expected bare fragment, got %q", body)
	}
	if !strings.Contains(body, "Next player: O") || !strings.Contains(body, "square green") {
		t.Fatalf("expected X placed and O to move, got %q", body)
	}
	if !strings.Contains(body, "1st move") {
		t.Fatalf("expected move list entry, got %q", body)
	}
	latest, _ := svc.Get(s.ID)
	if latest.Game.Step() != 1 {
		t.Fatalf("expected move applied, step=%d", latest.Game.Step())
	}
}

func TestPlayRejectsBadInput(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()

	for _, v := range []string{"", "x", "9", "-1"} {
		rr := postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {v}})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("cell=%q: expected 400, got %d", v, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "class=\"alert\"") {
			t.Fatalf("cell=%q: expected alert in fragment", v)
		}
	}
	latest, _ := svc.Get(s.ID)
	if latest.Game.Len() != 1 {
		t.Fatalf("bad input changed state")
	}
}

func TestPlayOnOccupiedCellIsNoop(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()
	postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {"4"}})

	rr := postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {"4"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	latest, _ := svc.Get(s.ID)
	if latest.Game.Step() != 1 || latest.Game.Len() != 2 {
		t.Fatalf("expected no-op, got step=%d len=%d", latest.Game.Step(), latest.Game.Len())
	}
}

func TestWinnerShownAndHighlighted(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()
	var rr *httptest.ResponseRecorder
	for _, c := range []string{"0", "1", "3", "4", "6"} {
		rr = postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {c}})
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Winner: X") {
		t.Fatalf("expected winner status, got %q", body)
	}
	if n := strings.Count(body, " winning\""); n != 3 {
		t.Fatalf("expected 3 highlighted cells, got %d", n)
	}
}

func TestJumpEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()
	for _, c := range []string{"0", "4", "8"} {
		postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {c}})
	}

	rr := postForm(h, "/game/"+s.ID+"/jump", url.Values{"step": {"1"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Next player: O") {
		t.Fatalf("expected O to move at step 1, got %q", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "3rd move") {
		t.Fatalf("jump should keep later moves listed")
	}
	latest, _ := svc.Get(s.ID)
	if latest.Game.Step() != 1 || latest.Game.Len() != 4 {
		t.Fatalf("unexpected state: step=%d len=%d", latest.Game.Step(), latest.Game.Len())
	}

	rr = postForm(h, "/game/"+s.ID+"/jump", url.Values{"step": {"7"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing step, got %d", rr.Code)
	}
}

func TestRestartEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()
	postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {"0"}})

	rr := postForm(h, "/game/"+s.ID+"/restart", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	latest, _ := svc.Get(s.ID)
	if latest.Game.Len() != 1 {
		t.Fatalf("expected fresh game, len=%d", latest.Game.Len())
	}
}

func TestStateEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	s, _ := svc.CreateGame()
	for _, c := range []string{"0", "4", "8"} {
		postForm(h, "/game/"+s.ID+"/play", url.Values{"cell": {c}})
	}

	req := httptest.NewRequest("GET", "/game/"+s.ID+"/state", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var got struct {
		Board  []string `json:"board"`
		Step   int      `json:"step"`
		Status string   `json:"status"`
		Moves  []struct {
			Label string `json:"label"`
		} `json:"moves"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, []string{"X", "", "", "", "O", "", "", "", "X"}, got.Board)
	assert.Equal(t, 3, got.Step)
	assert.Equal(t, "Next player: O", got.Status)
	labels := make([]string, 0, len(got.Moves))
	for _, m := range got.Moves {
		labels = append(labels, m.Label)
	}
	assert.Equal(t, []string{"Start", "1st move", "2nd move", "3rd move"}, labels)
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	reqCreate := httptest.NewRequest("POST", "/game", nil)
	rrCreate := httptest.NewRecorder()
	h.ServeHTTP(rrCreate, reqCreate)
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body without EventSource Accept header, got %q", rr.Body.String())
	}
}

func TestEventsStreamBoardUpdates(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	s, _ := svc.CreateGame()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/game/"+s.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The subscription is registered before headers are flushed.
	_, err = svc.Play(s.ID, 4)
	require.NoError(t, err)

	sc := bufio.NewScanner(resp.Body)
	var event string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" && event != "" {
			break
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, "board", event)
	payload := strings.Join(data, "\n")
	assert.Contains(t, payload, "id=\"game\"")
	assert.Contains(t, payload, "Next player: O")
}

func TestWriteEventSplitsLines(t *testing.T) {
	var b strings.Builder
	writeEvent(&b, "board", []byte("<a>\n<b>"))
	assert.Equal(t, "event: board\ndata: <a>\ndata: <b>\n\n", b.String())
}
