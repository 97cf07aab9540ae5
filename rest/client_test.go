package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coursewire/coursewire-go/types"
)

func TestNotificationsHydration(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "enveloped response",
			body: `{"results": [{"id": 1, "notification_type": "announcement", "is_read": false}, {"id": 2, "notification_type": "exam_result", "is_read": true}]}`,
			want: 2,
		},
		{
			name: "bare array response",
			body: `[{"id": 3, "notification_type": "course_update", "is_read": false}]`,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/notifications/" {
					t.Errorf("path = %q, want /notifications/", r.URL.Path)
				}
				if r.Method != http.MethodGet {
					t.Errorf("method = %q, want GET", r.Method)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Authorization = %q, want Bearer tok", got)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, 0, StaticToken("tok"))
			got, err := client.Notifications(context.Background())
			if err != nil {
				t.Fatalf("Notifications failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d notifications, want %d", len(got), tt.want)
			}
		})
	}
}

func TestNotificationsPreservesServerOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"id": 9}, {"id": 3}, {"id": 7}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0, StaticToken("tok"))
	got, err := client.Notifications(context.Background())
	if err != nil {
		t.Fatalf("Notifications failed: %v", err)
	}

	want := []int64{9, 3, 7}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("notifications[%d].ID = %d, want %d (server order is authoritative)", i, got[i].ID, id)
		}
	}
}

func TestNotificationsAuthMissing(t *testing.T) {
	client := NewClient("http://unused.invalid", 0, StaticToken(""))

	_, err := client.Notifications(context.Background())
	if !errors.Is(err, types.ErrAuthMissing) {
		t.Errorf("err = %v, want ErrAuthMissing", err)
	}
}

func TestNotificationsFetchError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		}))

		client := NewClient(srv.URL, 0, StaticToken("tok"))
		_, err := client.Notifications(context.Background())
		srv.Close()

		if !errors.Is(err, types.ErrFetch) {
			t.Errorf("status %d: err = %v, want ErrFetch", status, err)
		}

		var apiErr types.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != status {
			t.Errorf("status %d: APIError code = %d", status, apiErr.Code)
		}
	}
}

func TestMarkRead(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0, StaticToken("tok"))
	if err := client.MarkRead(context.Background(), 42); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	if gotPath != "/notifications/42/mark_read/" {
		t.Errorf("path = %q, want /notifications/42/mark_read/", gotPath)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", gotMethod)
	}
}

func TestMarkAllRead(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0, StaticToken("tok"))
	if err := client.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}

	if gotPath != "/notifications/mark_all_read/" {
		t.Errorf("path = %q, want /notifications/mark_all_read/", gotPath)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
}

func TestMutationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0, StaticToken("tok"))
	if err := client.MarkRead(context.Background(), 1); !errors.Is(err, types.ErrMutation) {
		t.Errorf("MarkRead err = %v, want ErrMutation", err)
	}
	if err := client.MarkAllRead(context.Background()); !errors.Is(err, types.ErrMutation) {
		t.Errorf("MarkAllRead err = %v, want ErrMutation", err)
	}
}
