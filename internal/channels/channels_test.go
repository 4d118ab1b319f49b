package channels_test

import (
	"errors"
	"testing"

	"github.com/AbdulWasayUl/country-explorer/internal/channels"
	"github.com/AbdulWasayUl/country-explorer/models"
)

func TestChannels_Table(t *testing.T) {
	tests := []struct {
		name     string
		inputID  string
		expected string
	}{
		{"SingleMessage", "all", "all"},
		{"AnotherMessage", "region/Asia", "region/Asia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := channels.New()

			if err := ch.Submit(models.DataRequest{ID: tt.inputID}); err != nil {
				t.Fatalf("unexpected submit error: %v", err)
			}

			got := (<-ch.DataRequest).ID
			ch.WG.Done()

			if got != tt.expected {
				t.Fatalf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestChannels_SubmitAfterClose(t *testing.T) {
	ch := channels.New()
	ch.Close()
	ch.Close() // idempotent

	if err := ch.Submit(models.DataRequest{ID: "x"}); !errors.Is(err, channels.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok := <-ch.DataRequest; ok {
		t.Fatal("expected closed channel")
	}
}
