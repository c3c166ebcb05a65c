package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bishaldk/samvad/internal/session"
)

// makeToken builds an unsigned JWT with the given expiry. The client only
// reads the exp claim, it never verifies signatures.
func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	enc := func(v any) string {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims := enc(map[string]int64{"exp": exp.Unix()})
	return header + "." + claims + ".sig"
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sess := session.New("test")
	return NewClient(srv.URL, sess, nil), sess
}

func freshSession(t *testing.T, sess *session.Session) {
	t.Helper()
	sess.SetTokens(session.TokenPair{
		Access:  makeToken(t, time.Now().Add(time.Hour)),
		Refresh: "refresh-1",
	})
}

func TestLoginInstallsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["email"] != "asha@example.com" || body["password"] != "pw" {
			t.Errorf("body = %v", body)
		}
		fmt.Fprint(w, `{"user":{"id":7,"email":"asha@example.com","first_name":"Asha","is_staff":false},
			"tokens":{"access":"acc-1","refresh":"ref-1"}}`)
	})
	c, sess := newTestClient(t, mux)

	if err := c.Login(context.Background(), "asha@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if got := sess.Tokens(); got.Access != "acc-1" || got.Refresh != "ref-1" {
		t.Fatalf("tokens = %+v", got)
	}
	if u := sess.User(); u.ID != "7" || u.FirstName != "Asha" {
		t.Fatalf("user = %+v", u)
	}
}

func TestUnauthorizedTriggersSingleRefreshRetry(t *testing.T) {
	var profileCalls, refreshCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		profileCalls++
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id":7,"email":"asha@example.com"}`)
	})
	mux.HandleFunc("/api/v1/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh"] != "refresh-1" {
			t.Errorf("refresh body = %v", body)
		}
		fmt.Fprint(w, `{"access":"fresh-token"}`)
	})
	c, sess := newTestClient(t, mux)
	freshSession(t, sess)

	var refreshed string
	c.OnTokenRefresh(func(access string) { refreshed = access })

	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if profileCalls != 2 || refreshCalls != 1 {
		t.Fatalf("profile calls = %d, refresh calls = %d", profileCalls, refreshCalls)
	}
	if refreshed != "fresh-token" {
		t.Fatalf("refresh hook got %q", refreshed)
	}
	if sess.Tokens().Access != "fresh-token" {
		t.Fatalf("session access = %q", sess.Tokens().Access)
	}
}

func TestUnauthorizedAfterRefreshSurfaces(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/v1/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access":"still-bad"}`)
	})
	c, sess := newTestClient(t, mux)
	freshSession(t, sess)

	_, err := c.Profile(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
}

func TestProactiveRefreshNearExpiry(t *testing.T) {
	var refreshCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		fmt.Fprintf(w, `{"access":%q}`, makeToken(t, time.Now().Add(time.Hour)))
	})
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":7}`)
	})
	c, sess := newTestClient(t, mux)
	sess.SetTokens(session.TokenPair{
		Access:  makeToken(t, time.Now().Add(5*time.Second)),
		Refresh: "refresh-1",
	})

	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want 1", refreshCalls)
	}
}

func TestRequestsRequireAuthentication(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())
	if _, err := c.Profile(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestMyConversationNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/conversation/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c, sess := newTestClient(t, mux)
	freshSession(t, sess)

	if _, err := c.MyConversation(context.Background()); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("err = %v, want ErrNoConversation", err)
	}
}

func TestMyConversationDecodesCID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/conversation/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cid":"9b2c4f1e-8a3d-4e5b-9c7a-1f2e3d4c5b6a","user":4,"slug":"asha-rai-4","is_online":false}`)
	})
	c, sess := newTestClient(t, mux)
	freshSession(t, sess)

	cid, err := c.MyConversation(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cid != "9b2c4f1e-8a3d-4e5b-9c7a-1f2e3d4c5b6a" {
		t.Fatalf("cid = %q, want the uuid from the cid field", cid)
	}
}

func TestListConversations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/conversation/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"cid":"c1d2e3f4-0000-4000-8000-000000000001","user":9,
			"user_details":{"id":9,"first_name":"Bina","last_name":"Rai","email":"bina@example.com"},
			"unread_count":3,"is_online":true}]`)
	})
	c, sess := newTestClient(t, mux)
	freshSession(t, sess)

	list, err := c.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d", len(list))
	}
	got := list[0]
	if got.CID != "c1d2e3f4-0000-4000-8000-000000000001" || got.PeerID != "9" ||
		got.PeerName != "Bina Rai" || got.UnreadCount != 3 || !got.IsOnline {
		t.Fatalf("summary = %+v", got)
	}
}

func TestFetchMessagesPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/conversation/5/messages/", func(w http.ResponseWriter, r *http.Request) {
		if cursor := r.URL.Query().Get("cursor"); cursor != "abc" {
			t.Errorf("cursor = %q, want abc", cursor)
		}
		fmt.Fprint(w, `{"results":[
			{"mid":2,"message":"later","message_type":"TEXT","sender":7,"timestamp":"2025-03-10T11:00:00","is_read":false},
			{"mid":1,"image":"pub-1","message_type":"IMAGE","sender":9,"timestamp":"2025-03-10T10:00:00","is_read":true}],
			"next":"http://x/api/chat/conversation/5/messages/?cursor=older","previous":null}`)
	})
	c, sess := newTestClient(t, mux)
	freshSession(t, sess)

	page, err := c.FetchMessages(context.Background(), "5", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 2 {
		t.Fatalf("results = %+v", page.Results)
	}
	if page.Next != "older" {
		t.Fatalf("next = %q, want cursor value extracted from link", page.Next)
	}
	text := page.Results[0]
	if text.MID != "2" || text.Conversation != "5" || text.Body != "later" {
		t.Fatalf("message = %+v", text)
	}
	image := page.Results[1]
	if image.Kind != "IMAGE" || image.Image != "pub-1" {
		t.Fatalf("image message = %+v", image)
	}
	if image.Status != "read" {
		t.Fatalf("status = %q, want read inferred from is_read", image.Status)
	}
}

func TestUploadImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/upload-image/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()
		if header.Filename != "cat.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		fmt.Fprint(w, `{"public_id":"pub-42"}`)
	})
	c, sess := newTestClient(t, mux)
	freshSession(t, sess)

	id, err := c.UploadImage(context.Background(), "cat.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if id != "pub-42" {
		t.Fatalf("public id = %q", id)
	}
}
