package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	db := testDB(t)

	want := &Credentials{
		Session:      "main",
		AccessToken:  "acc-1",
		RefreshToken: "ref-1",
		UserID:       "7",
		Email:        "asha@example.com",
		FirstName:    "Asha",
		LastName:     "Karki",
		IsStaff:      true,
	}
	if err := db.SaveCredentials(want); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadCredentials("main")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != *want {
		t.Fatalf("loaded = %+v, want %+v", got, want)
	}
}

func TestLoadCredentialsMissing(t *testing.T) {
	db := testDB(t)

	got, err := db.LoadCredentials("nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session, got %+v", got)
	}
}

func TestUpdateAccessToken(t *testing.T) {
	db := testDB(t)

	if err := db.SaveCredentials(&Credentials{Session: "main", AccessToken: "old", RefreshToken: "ref"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateAccessToken("main", "new"); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadCredentials("main")
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "new" || got.RefreshToken != "ref" {
		t.Fatalf("after refresh: %+v", got)
	}
}

func TestDeleteCredentials(t *testing.T) {
	db := testDB(t)

	if err := db.SaveCredentials(&Credentials{Session: "main", AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteCredentials("main"); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadCredentials("main")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("credentials survived delete")
	}
}

func TestConversationUpsertAndOrder(t *testing.T) {
	db := testDB(t)

	older := &Conversation{CID: "1", PeerName: "Bina", LastMessageAt: "2025-03-09T10:00:00"}
	newer := &Conversation{CID: "2", PeerName: "Asha", LastMessageAt: "2025-03-10T10:00:00"}
	for _, c := range []*Conversation{older, newer} {
		if err := db.UpsertConversation(c); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.ListConversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].CID != "2" || list[1].CID != "1" {
		t.Fatalf("list = %+v, want newest first", list)
	}

	// Upsert replaces in place.
	older.UnreadCount = 4
	older.LastMessagePreview = "hello"
	if err := db.UpsertConversation(older); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetConversation("1")
	if err != nil {
		t.Fatal(err)
	}
	if got.UnreadCount != 4 || got.LastMessagePreview != "hello" {
		t.Fatalf("after upsert: %+v", got)
	}
}

func TestSetUnreadCount(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{CID: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SetUnreadCount("1", 9); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetConversation("1")
	if err != nil {
		t.Fatal(err)
	}
	if got.UnreadCount != 9 {
		t.Fatalf("unread = %d, want 9", got.UnreadCount)
	}
}

func TestClearConversations(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{CID: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearConversations(); err != nil {
		t.Fatal(err)
	}
	list, err := db.ListConversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("list = %+v, want empty", list)
	}
}
