package memory

import (
	"context"
	"testing"

	"github.com/linkhoard/enricher/internal/enrich"
)

func TestPublisherStoresJobs(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), enrich.Job{URL: "https://a.example", ID: "1"})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), enrich.Job{URL: "https://b.example", ID: "2"})
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	jobs := pub.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].URL != "https://a.example" || jobs[1].ID != "2" {
		t.Fatalf("jobs not recorded correctly: %+v", jobs)
	}

	jobs[0].URL = "modified"
	if pub.Jobs()[0].URL == "modified" {
		t.Fatal("expected Jobs() to return a copy")
	}
}
