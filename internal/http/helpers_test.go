package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/postal"
	"storefront/internal/repos"
)

const adminSID = "sid-admin"

type testEnv struct {
	app      *fiber.App
	deps     *handlers.Deps
	db       *sqlx.DB
	products *repos.ProductRepo
	brands   *repos.BrandRepo
}

// fakeViaCEP answers 01001000 and reports every other code as unknown.
func fakeViaCEP() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/ws/01001000/json/" {
			_, _ = io.WriteString(w, `{"cep":"01001-000","logradouro":"Praça da Sé","localidade":"São Paulo","uf":"SP"}`)
			return
		}
		_, _ = io.WriteString(w, `{"erro": "true"}`)
	}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:",
		repos.SeedUser{ID: "u-admin", Email: "admin@storefront.test", Name: "Admin", Role: domain.RoleAdmin, Password: "Passw0rd!"},
		repos.SeedUser{ID: "u-clerk", Email: "clerk@storefront.test", Name: "Clerk", Role: domain.RoleUser, Password: "Passw0rd!"},
	)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	docs, err := docstore.Open(db)
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	brands := repos.NewBrandRepo(docs)
	if _, err := repos.SeedBrands(context.Background(), brands, "Acme", "Globex"); err != nil {
		t.Fatalf("seed brands: %v", err)
	}
	users := repos.NewUserRepo(db)
	if err := users.BindSession(adminSID, "u-admin"); err != nil {
		t.Fatalf("bind admin: %v", err)
	}
	if err := users.BindSession("sid-clerk", "u-clerk"); err != nil {
		t.Fatalf("bind clerk: %v", err)
	}

	viacep := fakeViaCEP()
	cfg := config.Config{
		DBDSN:         ":memory:",
		TemplatesDir:  "../../web/templates",
		PostalBaseURL: viacep.URL,
		SessionIdle:   30 * time.Minute,
		MessageTTL:    3 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	deps := handlers.NewDeps(ctx, cfg, db, docs, postal.NewClient(cfg.PostalBaseURL, time.Second, time.Minute))
	app := handlers.NewApp(cfg, deps)

	t.Cleanup(func() {
		deps.Sessions.Close()
		cancel()
		docs.Close()
		viacep.Close()
		_ = db.Close()
	})
	return &testEnv{app: app, deps: deps, db: db, products: repos.NewProductRepo(docs), brands: brands}
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

// client carries cookies across requests the way a browser would.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (e *testEnv) client(t *testing.T, sid string) *client {
	c := &client{t: t, app: e.app, cookies: map[string]string{}}
	if sid != "" {
		c.cookies["sid"] = sid
	}
	return c
}

func (c *client) do(req *http.Request) *http.Response {
	c.t.Helper()
	for k, v := range c.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := c.app.Test(req, 5000)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, ck := range resp.Cookies() {
		if ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (c *client) get(path string) (*http.Response, string) {
	c.t.Helper()
	resp := c.do(httptest.NewRequest("GET", path, nil))
	return resp, readBody(c.t, resp)
}

// post submits a form with the current csrf token.
func (c *client) post(path string, form url.Values) *http.Response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if _, ok := c.cookies["csrf_"]; !ok {
		c.get("/")
	}
	form.Set("csrf", c.cookies["csrf_"])
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// eventually polls fn until it reports true; snapshots arrive asynchronously.
func eventually(t *testing.T, what string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuf) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	applog.SetOutput(buf)
	defer applog.SetOutput(io.Discard)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
