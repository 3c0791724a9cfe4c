package email

import (
	"context"
	"strings"
	"testing"
)

func TestLogSender_Send(t *testing.T) {
	var called bool
	var gotTo, gotSubject string

	sender := NewLogSender(func(to, subject, body string) {
		called = true
		gotTo = to
		gotSubject = subject
		_ = body
	})

	err := sender.Send(context.Background(), Message{
		To:      "test@example.com",
		Subject: "Test Subject",
		Text:    "Hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("log function was not called")
	}
	if gotTo != "test@example.com" {
		t.Errorf("expected to=test@example.com, got %s", gotTo)
	}
	if gotSubject != "Test Subject" {
		t.Errorf("expected subject=Test Subject, got %s", gotSubject)
	}
}

func TestResendSender_New(t *testing.T) {
	sender := NewResendSender("re_test_key")
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.apiKey != "re_test_key" {
		t.Errorf("expected apiKey=re_test_key, got %s", sender.apiKey)
	}
}

func TestRenderWelcomeEmail(t *testing.T) {
	html, text, err := RenderWelcomeEmail(WelcomeData{
		AppName:      "Teamplane",
		TeamName:     "Acme Corp",
		DashboardURL: "https://app.example.com/dashboard",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "Acme Corp") {
		t.Error("HTML should contain the team name")
	}
	if !strings.Contains(html, "https://app.example.com/dashboard") {
		t.Error("HTML should contain the dashboard URL")
	}
	if !strings.Contains(text, "Acme Corp") {
		t.Error("text fallback should contain the team name")
	}
}

func TestRenderWelcomeEmailEscapesHTML(t *testing.T) {
	html, _, err := RenderWelcomeEmail(WelcomeData{
		AppName:  "Teamplane",
		TeamName: "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("team name should be HTML-escaped")
	}
}

func TestRenderInvitationEmail(t *testing.T) {
	html, text, err := RenderInvitationEmail(InvitationData{
		TeamName:    "Acme Corp",
		InviterName: "Jamie",
		Role:        "member",
		AcceptURL:   "https://app.example.com/invite/42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "Jamie") || !strings.Contains(html, "member") {
		t.Error("HTML should name the inviter and role")
	}
	if !strings.Contains(text, "https://app.example.com/invite/42") {
		t.Error("text fallback should contain the accept URL")
	}
}
