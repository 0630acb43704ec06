package sqlite

import "testing"

func TestNotificationRepoAddAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewNotificationRepo(db)

	if err := repo.Add(Notification{ID: "n1", UserID: "user-1", Kind: "job_finished", Message: "done"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	list, err := repo.ListForUser("user-1", false)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 1 || list[0].Read {
		t.Fatalf("expected 1 unread notification, got %+v", list)
	}
}

func TestNotificationRepoMarkReadFiltersUnreadOnly(t *testing.T) {
	db := openTestDB(t)
	repo := NewNotificationRepo(db)

	if err := repo.Add(Notification{ID: "n1", UserID: "user-1", Kind: "k", Message: "m1"}); err != nil {
		t.Fatalf("Add n1: %v", err)
	}
	if err := repo.Add(Notification{ID: "n2", UserID: "user-1", Kind: "k", Message: "m2"}); err != nil {
		t.Fatalf("Add n2: %v", err)
	}
	if err := repo.MarkRead("n1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	unread, err := repo.ListForUser("user-1", true)
	if err != nil {
		t.Fatalf("ListForUser unread: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != "n2" {
		t.Fatalf("expected only n2 unread, got %+v", unread)
	}

	all, err := repo.ListForUser("user-1", false)
	if err != nil {
		t.Fatalf("ListForUser all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 total, got %d", len(all))
	}
}

func TestNotificationRepoListForUserScopesByUser(t *testing.T) {
	db := openTestDB(t)
	repo := NewNotificationRepo(db)

	if err := repo.Add(Notification{ID: "n1", UserID: "user-1", Kind: "k", Message: "m"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := repo.Add(Notification{ID: "n2", UserID: "user-2", Kind: "k", Message: "m"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	list, err := repo.ListForUser("user-1", false)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 1 || list[0].UserID != "user-1" {
		t.Fatalf("expected only user-1's notification, got %+v", list)
	}
}
