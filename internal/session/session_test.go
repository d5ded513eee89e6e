package session

import "testing"

func TestResetClearsEverything(t *testing.T) {
	s := New()
	s.States.Set(StateActive)
	s.Messages.Append(NewUserMessage("find swing precincts"))
	s.Messages.Append(NewAssistantMessage("Here are the top swing precincts."))
	s.SetWorkflow(&WorkflowSelection{ID: "swing-detection", Name: "Swing Detection"})

	s.Reset()

	if s.Messages.Len() != 0 {
		t.Errorf("messages after reset = %d, want 0", s.Messages.Len())
	}
	if s.Workflow() != nil {
		t.Errorf("workflow after reset = %+v, want nil", s.Workflow())
	}
	if s.States.Current() != StateWelcome {
		t.Errorf("state after reset = %s, want welcome", s.States.Current())
	}
}

func TestFeatureCardMessageShape(t *testing.T) {
	msg := NewFeatureCardMessage(FeatureCard{PrecinctID: "OK-3", Name: "Okemos Precinct 3", Turnout: 0.71})

	if !msg.IsFeatureCard() {
		t.Error("card message should report IsFeatureCard")
	}
	if msg.Content != "" {
		t.Errorf("card message content = %q, want empty (card is the renderable)", msg.Content)
	}
	if msg.Role != RoleAssistant {
		t.Errorf("card message role = %s, want assistant", msg.Role)
	}
	if msg.ID == "" {
		t.Error("message ID should be assigned")
	}
}

func TestUserAndAssistantMessages(t *testing.T) {
	u := NewUserMessage("hello")
	a := NewAssistantMessage("hi")

	if u.Role != RoleUser || a.Role != RoleAssistant {
		t.Errorf("roles = %s/%s", u.Role, a.Role)
	}
	if u.IsFeatureCard() || a.IsFeatureCard() {
		t.Error("plain messages must not report IsFeatureCard")
	}
	if u.ID == a.ID {
		t.Error("message IDs should be unique")
	}
}
