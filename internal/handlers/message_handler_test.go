package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/middleware"
	"github.com/gigvault/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockMessageRepo struct {
	msgs []*models.Message
}

func (m *mockMessageRepo) Create(_ context.Context, msg *models.Message) error {
	cp := *msg
	m.msgs = append(m.msgs, &cp)
	return nil
}

func (m *mockMessageRepo) ListByProjectID(_ context.Context, projectID uuid.UUID) ([]*models.Message, error) {
	var out []*models.Message
	for _, msg := range m.msgs {
		if msg.ProjectID == projectID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockProjectReader struct {
	project *models.Project
}

func (m *mockProjectReader) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	if m.project == nil || m.project.ID != id {
		return nil, pgx.ErrNoRows
	}
	cp := *m.project
	return &cp, nil
}

func (m *mockProjectReader) List(context.Context) ([]*models.Project, error) { return nil, nil }

func (m *mockProjectReader) ListByClientID(context.Context, uuid.UUID) ([]*models.Project, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func chatFixture() (*MessageHandler, *mockMessageRepo, *models.Account, *models.Account) {
	client := &models.Account{ID: uuid.New(), Role: models.RoleClient}
	freelancer := &models.Account{ID: uuid.New(), Role: models.RoleFreelancer}
	p := &models.Project{
		ID:                uuid.New(),
		ClientID:          client.ID,
		HiredFreelancerID: &freelancer.ID,
		Status:            models.ProjectStatusInProgress,
	}
	msgs := &mockMessageRepo{}
	h := &MessageHandler{
		Messages: msgs,
		Projects: &mockProjectReader{project: p},
		Logger:   slog.New(slog.DiscardHandler),
	}
	return h, msgs, client, freelancer
}

func sendReq(t *testing.T, h *MessageHandler, acc *models.Account, projectID, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/v1/projects/"+projectID+"/messages", strings.NewReader(body))
	r.SetPathValue("id", projectID)
	if acc != nil {
		r = r.WithContext(middleware.WithAccount(r.Context(), acc))
	}
	w := httptest.NewRecorder()
	h.SendMessage(w, r)
	return w
}

func TestSendMessage(t *testing.T) {
	h, msgs, client, freelancer := chatFixture()
	pid := h.Projects.(*mockProjectReader).project.ID.String()

	w := sendReq(t, h, client, pid, `{"body":"any progress?"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if len(msgs.msgs) != 1 {
		t.Fatalf("stored %d messages, want 1", len(msgs.msgs))
	}
	got := msgs.msgs[0]
	if got.SenderID != client.ID || got.RecipientID != freelancer.ID {
		t.Errorf("sender/recipient = %s -> %s, want client -> freelancer", got.SenderID, got.RecipientID)
	}

	// Freelancer replies; recipient flips back to the client.
	w = sendReq(t, h, freelancer, pid, `{"body":"almost done"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("reply status = %d, want 201", w.Code)
	}
	if msgs.msgs[1].RecipientID != client.ID {
		t.Errorf("reply recipient = %s, want client", msgs.msgs[1].RecipientID)
	}
}

func TestSendMessage_Rejections(t *testing.T) {
	h, _, client, _ := chatFixture()
	pid := h.Projects.(*mockProjectReader).project.ID.String()
	stranger := &models.Account{ID: uuid.New(), Role: models.RoleFreelancer}

	tests := []struct {
		name string
		acc  *models.Account
		pid  string
		body string
		want int
	}{
		{"anonymous", nil, pid, `{"body":"hi"}`, http.StatusUnauthorized},
		{"not a participant", stranger, pid, `{"body":"hi"}`, http.StatusForbidden},
		{"unknown project", client, uuid.NewString(), `{"body":"hi"}`, http.StatusNotFound},
		{"empty body", client, pid, `{"body":"  "}`, http.StatusBadRequest},
		{"bad json", client, pid, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := sendReq(t, h, tt.acc, tt.pid, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestSendMessage_NoHiredFreelancer(t *testing.T) {
	h, _, client, _ := chatFixture()
	h.Projects.(*mockProjectReader).project.HiredFreelancerID = nil
	pid := h.Projects.(*mockProjectReader).project.ID.String()

	if w := sendReq(t, h, client, pid, `{"body":"hello?"}`); w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestListMessages(t *testing.T) {
	h, msgs, client, freelancer := chatFixture()
	p := h.Projects.(*mockProjectReader).project
	msgs.msgs = []*models.Message{
		{ID: uuid.New(), ProjectID: p.ID, SenderID: client.ID, RecipientID: freelancer.ID, Body: "status?"},
		{ID: uuid.New(), ProjectID: uuid.New(), SenderID: client.ID, RecipientID: freelancer.ID, Body: "other project"},
	}

	r := httptest.NewRequest(http.MethodGet, "/v1/projects/"+p.ID.String()+"/messages", nil)
	r.SetPathValue("id", p.ID.String())
	r = r.WithContext(middleware.WithAccount(r.Context(), freelancer))
	w := httptest.NewRecorder()
	h.ListMessages(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "status?") || strings.Contains(w.Body.String(), "other project") {
		t.Errorf("body = %s, want only this project's thread", w.Body.String())
	}

	// Non-participants are refused even for reads.
	stranger := &models.Account{ID: uuid.New(), Role: models.RoleClient}
	r = httptest.NewRequest(http.MethodGet, "/v1/projects/"+p.ID.String()+"/messages", nil)
	r.SetPathValue("id", p.ID.String())
	r = r.WithContext(middleware.WithAccount(r.Context(), stranger))
	w = httptest.NewRecorder()
	h.ListMessages(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger status = %d, want 403", w.Code)
	}
}
