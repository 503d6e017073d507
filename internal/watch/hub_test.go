package watch

import (
	"io"
	"log/slog"
	"testing"

	"github.com/arturkryukov/moldtrack/internal/domain/model"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func makeSnapshot(ids ...string) Snapshot {
	snap := make(Snapshot, 0, len(ids))
	for _, id := range ids {
		snap = append(snap, &model.Job{ID: id})
	}
	return snap
}

// TestHubBroadcastDeliversToAllSubscribers проверяет доставку снимка всем подписчикам.
func TestHubBroadcastDeliversToAllSubscribers(t *testing.T) {
	hub := testHub()

	ch1, unsub1 := hub.Subscribe()
	ch2, unsub2 := hub.Subscribe()
	defer unsub1()
	defer unsub2()

	if got := hub.Subscribers(); got != 2 {
		t.Fatalf("Subscribers: want 2, got %d", got)
	}

	hub.Broadcast(makeSnapshot("job-1"))

	for i, ch := range []<-chan Snapshot{ch1, ch2} {
		select {
		case snap := <-ch:
			if len(snap) != 1 || snap[0].ID != "job-1" {
				t.Errorf("Подписчик %d: неожиданный снимок %v", i+1, snap)
			}
		default:
			t.Errorf("Подписчик %d: снимок не доставлен", i+1)
		}
	}
}

// TestHubSlowSubscriberGetsLatest проверяет, что медленный подписчик
// получает последний снимок, а не устаревший.
func TestHubSlowSubscriberGetsLatest(t *testing.T) {
	hub := testHub()

	ch, unsub := hub.Subscribe()
	defer unsub()

	// Подписчик не читает; три публикации подряд.
	hub.Broadcast(makeSnapshot("job-1"))
	hub.Broadcast(makeSnapshot("job-1", "job-2"))
	hub.Broadcast(makeSnapshot("job-1", "job-2", "job-3"))

	select {
	case snap := <-ch:
		if len(snap) != 3 {
			t.Errorf("Ожидался последний снимок из 3 заявок, получено %d", len(snap))
		}
	default:
		t.Fatal("Снимок не доставлен")
	}

	// Промежуточные снимки вытеснены, буфер пуст.
	select {
	case snap := <-ch:
		t.Errorf("Ожидался пустой буфер, получен снимок из %d заявок", len(snap))
	default:
	}
}

// TestHubUnsubscribeClosesChannel проверяет снятие подписки.
func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := testHub()

	ch, unsub := hub.Subscribe()
	unsub()

	if got := hub.Subscribers(); got != 0 {
		t.Fatalf("Subscribers после отписки: want 0, got %d", got)
	}

	if _, ok := <-ch; ok {
		t.Error("Канал должен быть закрыт после отписки")
	}

	// Повторная отписка — no-op, без паники.
	unsub()

	// Публикация после отписки не должна паниковать на закрытом канале.
	hub.Broadcast(makeSnapshot("job-1"))
}

// TestHubLateSubscriberMissesNothingAfterNextBroadcast проверяет,
// что новый подписчик получает состояние со следующей публикации.
func TestHubLateSubscriberMissesNothingAfterNextBroadcast(t *testing.T) {
	hub := testHub()

	hub.Broadcast(makeSnapshot("job-1"))

	ch, unsub := hub.Subscribe()
	defer unsub()

	// До следующей публикации буфер пуст: начальный снимок
	// поздний подписчик загружает сам.
	select {
	case <-ch:
		t.Fatal("Новый подписчик не должен получать прошлые публикации")
	default:
	}

	hub.Broadcast(makeSnapshot("job-1", "job-2"))

	select {
	case snap := <-ch:
		if len(snap) != 2 {
			t.Errorf("Ожидался снимок из 2 заявок, получено %d", len(snap))
		}
	default:
		t.Fatal("Снимок не доставлен")
	}
}

// TestSnapshotFindJob проверяет поиск заявки в снимке по идентификатору.
func TestSnapshotFindJob(t *testing.T) {
	snap := makeSnapshot("job-1", "job-2")

	if j := snap.FindJob("job-2"); j == nil || j.ID != "job-2" {
		t.Errorf("FindJob(job-2): want job-2, got %v", j)
	}
	if j := snap.FindJob("job-9"); j != nil {
		t.Errorf("FindJob(job-9): want nil, got %v", j)
	}
}
