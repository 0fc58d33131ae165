package pubsub

import (
	"context"
	"testing"

	"github.com/etchbroker/makelar-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		name    string
		project string
		topic   string
		want    string
	}{
		{name: "bare id", project: "makelar-dev", topic: "makelar-order-events", want: "projects/makelar-dev/topics/makelar-order-events"},
		{name: "trims", project: " makelar-dev ", topic: "  quotes ", want: "projects/makelar-dev/topics/quotes"},
		{name: "full name passes through", project: "other", topic: "projects/p/topics/t", want: "projects/p/topics/t"},
		{name: "blank topic", project: "makelar-dev", topic: " ", want: ""},
		{name: "missing project", project: "", topic: "quotes", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TopicResourceName(tc.project, tc.topic); got != tc.want {
				t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.topic, got, tc.want)
			}
		})
	}
}

func TestTopicNamesSkipsBlanks(t *testing.T) {
	names := TopicNames(config.PubSubConfig{QuoteTopic: "quotes", OrderTopic: " ", PaymentTopic: "payments"})
	if len(names) != 2 || names[0] != "quotes" || names[1] != "payments" {
		t.Fatalf("unexpected topics %v", names)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil); err != errProjectIDRequired {
		t.Fatalf("expected errProjectIDRequired, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("quotes") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
