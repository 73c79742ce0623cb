package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/okian/huikao/internal/adapters/http/api"
	"github.com/okian/huikao/internal/adapters/http/swagger"
	"github.com/okian/huikao/internal/adapters/recordstore"
	service "github.com/okian/huikao/internal/app"
	"github.com/okian/huikao/internal/config"
	"github.com/okian/huikao/pkg/logger"
	"github.com/okian/huikao/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func gauge(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	convey.So(err, convey.ShouldBeNil)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func TestWiring(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		t.Setenv("HUIKAO_ADDR", ":8080")
		t.Setenv("HUIKAO_WORKER_COUNT", "3")

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")

		convey.Convey("When the service is started with it", func() {
			svc := service.New(recordstore.New("http://127.0.0.1:1"),
				service.WithWorkerCount(cfg.WorkerCount),
				service.WithQueueSize(cfg.QueueSize),
			)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the metrics updater publishes its gauges", func() {
				updateServiceMetrics(svc)
				convey.So(gauge("huikao_board_worker_count"), convey.ShouldEqual, 3.0)
				convey.So(gauge("huikao_board_queue_size"), convey.ShouldEqual, 0.0)
			})

			convey.Convey("Then the assembled handler serves health and docs", func() {
				mux := http.NewServeMux()
				swagger.Register(context.Background(), mux)
				apiServer := api.NewServer(svc, svc)
				apiServer.Register(context.Background(), mux)
				ts := httptest.NewServer(apiServer.Handler(mux))
				defer ts.Close()

				for _, path := range []string{"/healthz", "/api-docs", "/openapi.yaml", "/metrics"} {
					resp, err := http.Get(ts.URL + path)
					convey.So(err, convey.ShouldBeNil)
					_ = resp.Body.Close()
					convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				}
			})
		})
	})
}
