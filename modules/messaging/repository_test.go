package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	message "github.com/example/private-chat-demo/domain/message"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&message.Message{}, &message.Group{}, &message.Connection{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTestMessage(sender, recipient, content string, sentAt time.Time) *message.Message {
	return &message.Message{
		ID:                uuid.New().String(),
		SenderUsername:    sender,
		RecipientUsername: recipient,
		Content:           content,
		SentAt:            sentAt,
	}
}

func TestRepository_AddToGroup(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	group, err := repo.AddToGroup("alice-bob", "conn-1", "alice")
	if err != nil {
		t.Fatalf("AddToGroup() error = %v", err)
	}
	if group.Name != "alice-bob" {
		t.Errorf("expected group alice-bob, got %q", group.Name)
	}
	if len(group.Connections) != 1 || group.Connections[0].Username != "alice" {
		t.Fatalf("expected one connection for alice, got %+v", group.Connections)
	}

	// Second member joins the same group
	group, err = repo.AddToGroup("alice-bob", "conn-2", "bob")
	if err != nil {
		t.Fatalf("AddToGroup() second join error = %v", err)
	}
	if len(group.Connections) != 2 {
		t.Errorf("expected two connections, got %d", len(group.Connections))
	}
	if !group.HasMember("alice") || !group.HasMember("bob") {
		t.Errorf("expected both members present, got %+v", group.Connections)
	}
}

func TestRepository_RemoveConnection(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if _, err := repo.AddToGroup("alice-bob", "conn-1", "alice"); err != nil {
		t.Fatalf("AddToGroup() error = %v", err)
	}
	if _, err := repo.AddToGroup("alice-bob", "conn-2", "bob"); err != nil {
		t.Fatalf("AddToGroup() error = %v", err)
	}

	group, conn, err := repo.RemoveConnection("conn-1")
	if err != nil {
		t.Fatalf("RemoveConnection() error = %v", err)
	}
	if conn == nil || conn.Username != "alice" {
		t.Fatalf("expected removed connection for alice, got %+v", conn)
	}
	if len(group.Connections) != 1 || group.Connections[0].Username != "bob" {
		t.Errorf("expected bob to remain, got %+v", group.Connections)
	}
}

func TestRepository_RemoveConnection_Unknown(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	group, conn, err := repo.RemoveConnection("never-registered")
	if err != nil {
		t.Fatalf("RemoveConnection() error = %v", err)
	}
	if group != nil || conn != nil {
		t.Errorf("expected nil results for unknown connection, got %+v / %+v", group, conn)
	}
}

func TestRepository_GetGroup_NotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if _, err := repo.GetGroup("nobody-nobody"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestRepository_GetThread_MarksRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	base := time.Now().UTC().Add(-time.Hour)
	m1 := newTestMessage("bob", "alice", "hi alice", base)
	m2 := newTestMessage("alice", "bob", "hi bob", base.Add(time.Minute))
	m3 := newTestMessage("bob", "alice", "still there?", base.Add(2*time.Minute))
	for _, m := range []*message.Message{m1, m2, m3} {
		if err := repo.AddMessage(m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	thread, err := repo.GetThread("alice", "bob")
	if err != nil {
		t.Fatalf("GetThread() error = %v", err)
	}
	if len(thread) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(thread))
	}

	// Oldest first
	if thread[0].ID != m1.ID || thread[2].ID != m3.ID {
		t.Errorf("thread not ordered oldest first: %v", []string{thread[0].ID, thread[1].ID, thread[2].ID})
	}

	// Messages addressed to alice are now read, both in the returned
	// slice and in the store.
	for _, m := range thread {
		if m.RecipientUsername == "alice" && m.ReadAt == nil {
			t.Errorf("message %s to alice not marked read in result", m.ID)
		}
	}
	stored, err := repo.GetMessage(m1.ID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if stored.ReadAt == nil {
		t.Error("read mark was not committed to the store")
	}

	// Alice's own outgoing message stays unread until bob opens the thread.
	stored, err = repo.GetMessage(m2.ID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if stored.ReadAt != nil {
		t.Error("message to bob should not be marked read by alice's view")
	}
}

func TestRepository_GetThread_ExcludesDeleted(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	base := time.Now().UTC().Add(-time.Hour)
	kept := newTestMessage("bob", "alice", "kept", base)
	dropped := newTestMessage("bob", "alice", "dropped", base.Add(time.Minute))
	dropped.RecipientDeleted = true
	for _, m := range []*message.Message{kept, dropped} {
		if err := repo.AddMessage(m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	thread, err := repo.GetThread("alice", "bob")
	if err != nil {
		t.Fatalf("GetThread() error = %v", err)
	}
	if len(thread) != 1 || thread[0].ID != kept.ID {
		t.Errorf("expected only the kept message, got %+v", thread)
	}
}

func TestRepository_ListForUser(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	base := time.Now().UTC().Add(-time.Hour)
	read := newTestMessage("bob", "alice", "old news", base)
	now := base.Add(time.Second)
	read.ReadAt = &now
	unread := newTestMessage("bob", "alice", "fresh", base.Add(time.Minute))
	sent := newTestMessage("alice", "carol", "outgoing", base.Add(2*time.Minute))
	for _, m := range []*message.Message{read, unread, sent} {
		if err := repo.AddMessage(m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		container message.Container
		wantIDs   []string
	}{
		{"unread", message.Unread, []string{unread.ID}},
		{"inbox newest first", message.Inbox, []string{unread.ID, read.ID}},
		{"outbox", message.Outbox, []string{sent.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, total, err := repo.ListForUser("alice", tt.container, PageParams{PageNumber: 1, PageSize: 10})
			if err != nil {
				t.Fatalf("ListForUser() error = %v", err)
			}
			if total != int64(len(tt.wantIDs)) {
				t.Errorf("expected total %d, got %d", len(tt.wantIDs), total)
			}
			if len(msgs) != len(tt.wantIDs) {
				t.Fatalf("expected %d messages, got %d", len(tt.wantIDs), len(msgs))
			}
			for i, id := range tt.wantIDs {
				if msgs[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, msgs[i].ID)
				}
			}
		})
	}
}

func TestRepository_ListForUser_Pagination(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		m := newTestMessage("bob", "alice", "msg", base.Add(time.Duration(i)*time.Minute))
		if err := repo.AddMessage(m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
		ids = append(ids, m.ID)
	}

	msgs, total, err := repo.ListForUser("alice", message.Inbox, PageParams{PageNumber: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	// Newest first: page 2 of size 2 holds the 3rd and 4th newest.
	if len(msgs) != 2 || msgs[0].ID != ids[2] || msgs[1].ID != ids[1] {
		t.Errorf("unexpected page contents: %+v", msgs)
	}
}

func TestRepository_DeleteForUser(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	m := newTestMessage("alice", "bob", "delete me", time.Now().UTC())
	if err := repo.AddMessage(m); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	// Sender deletes: the row survives with the flag set.
	if err := repo.DeleteForUser(m.ID, "alice"); err != nil {
		t.Fatalf("DeleteForUser(sender) error = %v", err)
	}
	stored, err := repo.GetMessage(m.ID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if !stored.SenderDeleted || stored.RecipientDeleted {
		t.Errorf("expected only sender flag set, got %+v", stored)
	}

	// Repeating the same delete is a no-op.
	if err := repo.DeleteForUser(m.ID, "alice"); err != nil {
		t.Fatalf("repeated DeleteForUser() error = %v", err)
	}

	// Recipient deletes: the row is physically removed.
	if err := repo.DeleteForUser(m.ID, "bob"); err != nil {
		t.Fatalf("DeleteForUser(recipient) error = %v", err)
	}
	if _, err := repo.GetMessage(m.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound after both deletes, got %v", err)
	}
	if err := repo.DeleteForUser(m.ID, "alice"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound on deleted row, got %v", err)
	}
}

func TestRepository_DeleteForUser_NotParticipant(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	m := newTestMessage("alice", "bob", "private", time.Now().UTC())
	if err := repo.AddMessage(m); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	if err := repo.DeleteForUser(m.ID, "mallory"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}
