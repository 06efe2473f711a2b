package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
	"github.com/moonshotcommons/cross-guess-game/internal/settlement"
	"github.com/moonshotcommons/cross-guess-game/internal/wallet"
)

func postJoin(t *testing.T, baseURL string, guess int) {
	t.Helper()
	body := strings.NewReader(`{"guess":` + strconv.Itoa(guess) + `}`)
	resp, err := http.Post(baseURL+"/api/join", "application/json", body)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
}

func TestEventsSSE(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?mode=demo", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	lines := bufio.NewScanner(resp.Body)
	next := func() (string, string) {
		t.Helper()
		var event, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return "", ""
	}

	event, data := next()
	if event != "status" {
		t.Fatalf("first event = %q, want status", event)
	}
	var st StatusResponse
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.Mode != ModeDemo || st.Game != nil {
		t.Errorf("status snapshot = %+v", st)
	}

	postJoin(t, srv.URL, 2)

	for {
		event, data = next()
		if event == string(game.EventPlayerJoined) {
			break
		}
	}
	var e game.Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if e.Identity != wallet.DemoAddresses[0] || e.Guess != 2 {
		t.Errorf("player_joined = %+v", e)
	}
}

func TestEventsWebSocket(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws/events?mode=demo"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read hello: %v", err)
	}
	var hello subscribed
	if err := json.Unmarshal(data, &hello); err != nil {
		t.Fatalf("decoding hello: %v", err)
	}
	if hello.Type != "subscribed" || hello.Mode != ModeDemo || !hello.Status.CanJoin {
		t.Errorf("hello = %+v", hello)
	}

	postJoin(t, srv.URL, 4)

	var types []game.EventType
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read event: %v (got %v)", err, types)
		}
		var e game.Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("decoding event: %v", err)
		}
		types = append(types, e.Type)
		if e.Type == game.EventPlayerJoined {
			break
		}
	}
	if types[0] != game.EventRoundCreated {
		t.Errorf("events = %v, want round_created first", types)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestEventsWebSocketUnknownMode(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	w := env.do(t, http.MethodGet, "/ws/events?mode=moon", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBroker(t *testing.T) {
	b := NewBroker()
	demo := b.Subscribe(ModeDemo)
	other := b.Subscribe(ModeReal)

	b.Notify(game.Event{Type: game.EventRoundCreated, Mode: ModeDemo, RoundID: "demo_1"})

	select {
	case msg := <-demo:
		if msg.Type != string(game.EventRoundCreated) || !strings.Contains(string(msg.Data), `"roundId":"demo_1"`) {
			t.Errorf("message = %s %s", msg.Type, msg.Data)
		}
	default:
		t.Fatal("demo subscriber got nothing")
	}
	select {
	case msg := <-other:
		t.Fatalf("real subscriber got %s", msg.Type)
	default:
	}

	// A full subscriber is skipped, not waited on.
	for range cap(demo) + 5 {
		b.Notify(game.Event{Type: game.EventPlayerJoined, Mode: ModeDemo})
	}
	if len(demo) != cap(demo) {
		t.Errorf("buffered %d, want %d", len(demo), cap(demo))
	}

	b.Unsubscribe(ModeDemo, demo)
	b.Unsubscribe(ModeReal, other)
	b.Notify(game.Event{Type: game.EventRoundEnded, Mode: ModeDemo})
	if len(b.subs) != 0 {
		t.Errorf("subs = %v, want empty", b.subs)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(ModeDemo)
	for _, name := range []string{ModeReal, ModeDemo} {
		s, err := game.New(game.Config{
			Mode:            name,
			Executor:        settlement.NewStub(0),
			Answers:         game.FixedAnswer(1),
			RoundDuration:   time.Minute,
			MaxParticipants: 2,
			GuessMax:        5,
		})
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		reg.Add(&Mode{Name: name, Session: s, Wallet: wallet.NewRotation()})
	}

	tests := []struct {
		lookup  string
		want    string
		wantErr error
	}{
		{lookup: "", want: ModeDemo},
		{lookup: "real", want: ModeReal},
		{lookup: " DEMO ", want: ModeDemo},
		{lookup: "moon", wantErr: ErrUnknownMode},
	}
	for _, tt := range tests {
		m, err := reg.Get(tt.lookup)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Get(%q) error = %v, want %v", tt.lookup, err, tt.wantErr)
			continue
		}
		if err == nil && m.Name != tt.want {
			t.Errorf("Get(%q) = %s, want %s", tt.lookup, m.Name, tt.want)
		}
	}

	if got := strings.Join(reg.Names(), ","); got != "demo,real" {
		t.Errorf("Names() = %s", got)
	}

	m, _ := reg.Get(ModeDemo)
	if err := reg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := m.Session.Join(context.Background(), "0xabc", 1); !errors.Is(err, game.ErrSessionClosed) {
		t.Errorf("join after close = %v, want ErrSessionClosed", err)
	}
	if len(reg.Names()) != 0 {
		t.Errorf("Names() after close = %v", reg.Names())
	}
}

func TestHandleOpenAPI(t *testing.T) {
	h := handleOpenAPI()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("content-type = %q, want application/json", got)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"openapi": "3.0`) {
		t.Fatalf("body missing openapi version")
	}
	for _, path := range []string{"/api/join", "/api/status", "/api/result", "/api/wallet-info", "/healthz"} {
		if !strings.Contains(body, `"`+path+`"`) {
			t.Errorf("body missing %s path", path)
		}
	}
}

func TestSwaggerUI(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	w := env.do(t, http.MethodGet, "/docs/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Type"); !strings.Contains(got, "text/html") {
		t.Fatalf("content-type = %q, want text/html", got)
	}
	if !strings.Contains(w.Body.String(), "/openapi.json") {
		t.Fatalf("body missing /openapi.json")
	}
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=app></div>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(Deps{
		Logger: quietLogger(),
		Modes:  NewRegistry(ModeDemo),
		Broker: NewBroker(),
		SPADir: dir,
	})

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/game/123", http.StatusOK, "<div id=app>"},
		{"/app.js", http.StatusOK, "console.log"},
		{"/api/nope", http.StatusNotFound, `"success":false`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
