package worker_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/huikao/internal/adapters/mq/queue"
	"github.com/okian/huikao/internal/adapters/mq/worker"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

type fakeSubmitter struct {
	mu     sync.Mutex
	stored []int64
	fail   map[int64]error
}

func (f *fakeSubmitter) AddEntry(_ context.Context, e model.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[e.ID]; err != nil {
		return err
	}
	f.stored = append(f.stored, e.ID)
	return nil
}

func (f *fakeSubmitter) ids() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.stored...)
}

func submission(id int64) worker.Submission {
	return worker.Submission{RequestID: "r", Entry: model.Entry{ID: id}, ReceivedAt: time.Now()}
}

func TestInMemoryWorker(t *testing.T) {
	Convey("Given a worker over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		sub := &fakeSubmitter{fail: map[int64]error{2: errors.New("upstream down")}}

		var mu sync.Mutex
		results := map[int64]error{}
		w := worker.NewInMemoryWorker(q, sub, worker.WithName("w"), worker.WithOnDone(func(s worker.Submission, err error) {
			mu.Lock()
			results[s.Entry.ID] = err
			mu.Unlock()
		}))

		for _, id := range []int64{1, 2, 3} {
			So(q.Enqueue(context.Background(), submission(id)), ShouldBeTrue)
		}
		So(q.Close(), ShouldBeNil)

		w.Run(context.Background())

		Convey("Then stored entries are forwarded in order", func() {
			So(sub.ids(), ShouldResemble, []int64{1, 3})
		})

		Convey("Then a failure is reported and not retried", func() {
			mu.Lock()
			defer mu.Unlock()
			So(len(results), ShouldEqual, 3)
			So(results[1], ShouldBeNil)
			So(results[2], ShouldNotBeNil)
		})

		Convey("Then shutdown after the run returns at once", func() {
			So(w.Shutdown(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given a worker on an idle queue", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, &fakeSubmitter{})
		go w.Run(context.Background())

		Convey("When it is shut down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			So(w.Shutdown(ctx), ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		sub := &fakeSubmitter{}
		p := worker.NewPool(3, q, sub)
		So(p.Size(), ShouldEqual, 3)
		p.Start(context.Background())

		for i := int64(1); i <= 40; i++ {
			So(q.Enqueue(context.Background(), submission(i)), ShouldBeTrue)
		}

		Convey("When it shuts down", func() {
			So(p.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then every waiting submission was forwarded", func() {
				So(len(sub.ids()), ShouldEqual, 40)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})

	Convey("Given a pool with a non-positive size", t, func() {
		p := worker.NewPool(0, queue.NewInMemoryQueue(), &fakeSubmitter{})
		So(p.Size(), ShouldEqual, 4)
	})
}
