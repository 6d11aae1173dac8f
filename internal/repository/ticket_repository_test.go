package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/deskmail-io/deskmail/internal/models"
)

func TestTicketCreateWithFirstMessage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO tickets").
		WithArgs("acme", "billing", "jane@example.com", "Jane", "abc@mail", "Refund request").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(int64(7), "acme", "billing", "abc@mail", nil,
			"jane@example.com", "Jane", "jane@example.com", "Refund request", "body", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	billing := "billing"
	jane := "Jane"
	ticket := &models.Ticket{
		OrgID: "acme", SubgroupID: &billing, From: "jane@example.com", FromName: &jane,
		MessageID: "abc@mail", Title: "Refund request",
	}
	message := &models.Message{
		OrgID: "acme", SubgroupID: &billing, MessageID: "abc@mail",
		FromEmail: "jane@example.com", FromName: &jane, ReplyTo: "jane@example.com",
		Title: "Refund request", Text: "body",
	}
	ticketID, messageID, err := repo.CreateWithFirstMessage(context.Background(), ticket, message)
	if err != nil {
		t.Fatalf("CreateWithFirstMessage returned error: %v", err)
	}
	if ticketID != 7 || messageID != 11 {
		t.Fatalf("unexpected ids: ticket=%d message=%d", ticketID, messageID)
	}
	if ticket.ID != 7 || message.ID != 11 || message.TicketID != 7 {
		t.Fatalf("ids not written back: ticket=%+v message=%+v", ticket, message)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTicketCreateRollsBackOnMessageFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO tickets").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("INSERT INTO messages").
		WillReturnError(errors.New("duplicate message_id"))
	mock.ExpectRollback()

	ticket := &models.Ticket{OrgID: "acme", From: "jane@example.com", MessageID: "abc@mail", Title: "x"}
	message := &models.Message{OrgID: "acme", MessageID: "abc@mail", FromEmail: "jane@example.com", ReplyTo: "jane@example.com", Title: "x", Text: "y"}
	if _, _, err := repo.CreateWithFirstMessage(context.Background(), ticket, message); err == nil {
		t.Fatal("expected error when the first message insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTicketGetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepository(db)

	closedAt := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT id, org_id, subgroup_id, from_email").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "org_id", "subgroup_id", "from_email", "from_name", "message_id", "title", "closed_at", "create_time",
		}).AddRow(int64(7), "acme", nil, "jane@example.com", nil, "abc@mail", "Refund request", closedAt, time.Now()))

	ticket, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if ticket == nil || ticket.ID != 7 {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if !ticket.IsClosed() {
		t.Fatal("expected closed ticket")
	}
	if ticket.SubgroupID != nil || ticket.FromName != nil {
		t.Fatalf("expected NULL columns as nil pointers: %+v", ticket)
	}
}

func TestTicketGetByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepository(db)

	mock.ExpectQuery("SELECT id, org_id, subgroup_id, from_email").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "org_id", "subgroup_id", "from_email", "from_name", "message_id", "title", "closed_at", "create_time",
		}))

	ticket, err := repo.GetByID(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if ticket != nil {
		t.Fatalf("expected nil for a missing ticket, got %+v", ticket)
	}
}

func TestTicketReopen(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepository(db)

	mock.ExpectExec("UPDATE tickets SET closed_at = NULL").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Reopen(context.Background(), 7); err != nil {
		t.Fatalf("Reopen returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
