//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/daemon"
	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/infra"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
	"github.com/eliteGoblin/focusd/browser_guard/internal/telemetry"
	"github.com/eliteGoblin/focusd/browser_guard/internal/testutil"
	"github.com/eliteGoblin/focusd/browser_guard/internal/usecase"
	"github.com/eliteGoblin/focusd/browser_guard/test/fixtures"
)

type envelope struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

type recordingNotifier struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNotifier) NotifyWarning(url string, killScheduled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.urls)
}

// readUntil reads envelopes until one of type eventType arrives.
func readUntil(conn *websocket.Conn, eventType string) envelope {
	GinkgoHelper()
	for {
		Expect(conn.SetReadDeadline(time.Now().Add(3 * time.Second))).To(Succeed())
		var env envelope
		Expect(conn.ReadJSON(&env)).To(Succeed())
		if env.Type == eventType {
			return env
		}
	}
}

var _ = Describe("BrowserGuard daemon", func() {
	var (
		clock      *testutil.FakeClock
		browsers   *fixtures.FakeBrowsers
		notifier   *recordingNotifier
		hub        *telemetry.Hub
		source     *usecase.BlocklistSource
		enforcer   *usecase.Enforcer
		watcher    *daemon.Watcher
		server     *telemetry.Server
		conn       *websocket.Conn
		cancel     context.CancelFunc
		serverDone chan error
	)

	BeforeEach(func() {
		logger := zap.NewNop()
		clock = testutil.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local))
		browsers = fixtures.NewFakeBrowsers()
		notifier = &recordingNotifier{}
		registry := policy.NewRegistry("darwin")

		blocklist := fixtures.NewBlocklistServer([]domain.BlockPeriod{
			{Start: "08:00", End: "12:00", Domains: []string{"facebook.com"}},
		})
		DeferCleanup(blocklist.Close)

		hub = telemetry.NewHub(domain.SystemInfo{Platform: "darwin", Version: "test"}, clock, logger)
		hub.SetBrowsers(registry.IDs())

		source = usecase.NewBlocklistSource(
			infra.NewHTTPBlocklistFetcherWithClient(blocklist.URL, "test", blocklist.Client()),
			policy.DefaultRuleSet(""), 30*time.Second, hub, clock, logger)
		_, err := source.Refresh(context.Background())
		Expect(err).NotTo(HaveOccurred())

		probe := usecase.NewBrowserProbe(browsers, browsers, clock, logger)
		enforcer = usecase.NewEnforcer(browsers, hub, clock, usecase.DefaultEnforcerConfig(), logger)
		watcher = daemon.NewWatcher(daemon.DefaultWatcherConfig(), registry.IDs(),
			probe, source, enforcer, hub, notifier, clock, logger)

		inspector := usecase.NewInspector(source, hub, hub, clock)
		server = telemetry.NewServer(telemetry.ServerConfig{Host: "127.0.0.1"}, hub, inspector, logger)
		_, err = server.Listen()
		Expect(err).NotTo(HaveOccurred())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		serverDone = make(chan error, 1)
		go func() { serverDone <- server.Start(ctx) }()

		wsURL := "ws" + strings.TrimPrefix(server.URL(), "http") + "/ws"
		conn, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
		Expect(err).NotTo(HaveOccurred())

		confirm := readUntil(conn, string(domain.EventSystemStatus))
		Expect(confirm.Data).To(HaveKeyWithValue("status", "connected"))
		Expect(confirm.Data).To(HaveKey("clientId"))
	})

	AfterEach(func() {
		conn.Close()
		cancel()
		Eventually(serverDone).Should(Receive(BeNil()))
		hub.Close()
	})

	Describe("enforcement", func() {
		Context("when Chrome shows a blocked site during a block period", func() {
			It("streams the check, the block and the kill to observers", func() {
				browsers.Open(domain.BrowserChrome, "https://facebook.com/feed")

				decision := watcher.Tick(context.Background())
				Expect(decision).NotTo(BeNil())
				Expect(decision.Blocked).To(BeTrue())
				Expect(notifier.count()).To(Equal(1))

				check := readUntil(conn, string(domain.EventURLCheck))
				Expect(check.Data).To(HaveKeyWithValue("browser", "chrome"))
				Expect(check.Data).To(HaveKeyWithValue("isBlocked", true))

				blocked := readUntil(conn, string(domain.EventDomainBlocked))
				Expect(blocked.Data).To(HaveKeyWithValue("url", "https://facebook.com/feed"))

				Expect(browsers.Killed()).To(BeEmpty())
				clock.Advance(5 * time.Second)
				Expect(browsers.Killed()).To(Equal([]domain.BrowserID{domain.BrowserChrome}))

				killed := readUntil(conn, string(domain.EventBrowserKilled))
				Expect(killed.Data).To(HaveKeyWithValue("browser", "chrome"))
				Expect(killed.Data).To(HaveKeyWithValue("reason", "blocked-domain"))
			})

			It("does not kill again within the cooldown", func() {
				browsers.Open(domain.BrowserChrome, "https://facebook.com/feed")
				watcher.Tick(context.Background())
				clock.Advance(5 * time.Second)

				browsers.Open(domain.BrowserChrome, "https://facebook.com/feed")
				clock.Advance(5 * time.Second)
				watcher.Tick(context.Background())
				clock.Advance(5 * time.Second)
				Expect(browsers.Killed()).To(HaveLen(1))

				clock.Advance(30 * time.Second)
				watcher.Tick(context.Background())
				clock.Advance(5 * time.Second)
				Expect(browsers.Killed()).To(HaveLen(2))
			})
		})

		Context("when the site is outside every block period", func() {
			It("reports the check without blocking", func() {
				clock.Advance(4 * time.Hour) // 13:00
				browsers.Open(domain.BrowserEdge, "https://facebook.com/feed")

				Expect(watcher.Tick(context.Background())).To(BeNil())

				check := readUntil(conn, string(domain.EventURLCheck))
				for check.Data["browser"] != "edge" {
					check = readUntil(conn, string(domain.EventURLCheck))
				}
				Expect(check.Data).To(HaveKeyWithValue("isBlocked", false))
				Expect(notifier.count()).To(BeZero())
			})
		})
	})

	Describe("observation server", func() {
		It("answers ping with pong", func() {
			Expect(conn.WriteJSON(map[string]string{"type": "ping"})).To(Succeed())

			pong := readUntil(conn, string(domain.EventSystemStatus))
			Expect(pong.Data).To(HaveKeyWithValue("type", "pong"))
		})

		It("tests a URL over HTTP and streams the manual check", func() {
			resp, err := http.Post(server.URL()+"/api/test-url", "application/json",
				strings.NewReader(`{"url":"https://facebook.com/"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result domain.Decision
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result.Blocked).To(BeTrue())
			Expect(result.MatchedDomain()).To(Equal("facebook.com"))

			check := readUntil(conn, string(domain.EventURLCheck))
			Expect(check.Data).To(HaveKeyWithValue("source", "manual-test"))
		})

		It("reports the blocklist and connected observer in the state", func() {
			resp, err := http.Get(server.URL() + "/api/state")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var state domain.DebugState
			Expect(json.NewDecoder(resp.Body).Decode(&state)).To(Succeed())
			Expect(state.Blocklist.Error).To(BeNil())
			Expect(state.Blocklist.Data.Periods).To(HaveLen(1))
			Expect(state.Blocklist.Status.IsActive).To(BeTrue())
			Expect(state.Clients).To(HaveLen(1))
		})
	})
})
