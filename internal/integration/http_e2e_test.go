//go:build integration

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"myrestaurants/internal/adapters/auth"
	server "myrestaurants/internal/adapters/http_server"
	redisad "myrestaurants/internal/adapters/redis"
	"myrestaurants/internal/app"
	"myrestaurants/internal/fixtures"
	mysqlrepo "myrestaurants/internal/storage/mysql"
)

const seed = `
- model: auth.user
  pk: 1
  fields: {username: chef, password: chef-pw}
- model: auth.user
  pk: 2
  fields: {username: critic, password: critic-pw}
- model: myrestaurants.address
  pk: 1
  fields: {street: Rua Nova, number: 12, city: Porto, country: Portugal, user: 1}
- model: myrestaurants.restaurant
  pk: 1
  fields: {name: Tasca, address: 1, user: 1, date: 2015-06-01}
`

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=myrestaurants",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/myrestaurants?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	db := startMySQL(t)
	if err := mysqlrepo.Bootstrap(ctx, db); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	store := mysqlrepo.New(db)
	objs, err := fixtures.Parse(strings.NewReader(seed))
	if err != nil {
		t.Fatalf("parse fixtures: %v", err)
	}
	if _, err := fixtures.NewLoader(store, 2).Load(ctx, objs); err != nil {
		t.Fatalf("load fixtures: %v", err)
	}

	cache := redisad.New(miniredis.RunT(t).Addr(), "", 0)
	q := app.NewQueryService(store, cache, time.Minute)
	c := app.NewCommandService(store, cache)
	authn := auth.NewAuthenticator(store.Users(), auth.NewTokens([]byte("e2e"), time.Hour))
	views, err := server.LoadViews()
	if err != nil {
		t.Fatalf("views: %v", err)
	}

	srv := server.New(server.Options{Timeout: 10 * time.Second, Actors: authn, Cookie: "sessionid"})
	srv.MountHealth()
	srv.MountAccounts(&server.AccountHandlers{Auth: authn, Views: views, Cookie: "sessionid", SessionTTL: time.Hour, LoginRPS: 5, LoginBurst: 10})
	srv.MountAPI(&server.APIHandlers{API: app.NewAPI(store, q, c), CORSOrigins: []string{"*"}})
	srv.MountPages(&server.PageHandlers{P: app.NewPages(q, c), Views: views})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// csrfToken visits the login page so the jar holds a csrftoken cookie,
// and returns its value for form posts.
func csrfToken(t *testing.T, client *http.Client, base string) string {
	t.Helper()
	res, err := client.Get(base + "/accounts/login")
	if err != nil {
		t.Fatalf("GET login: %v", err)
	}
	res.Body.Close()
	u, _ := url.Parse(base)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == server.CSRFCookie {
			return c.Value
		}
	}
	t.Fatalf("no %s cookie issued", server.CSRFCookie)
	return ""
}

func TestHTTP_EndToEnd_ReviewFlow(t *testing.T) {
	ts := newSite(t)
	client := browser(t)
	csrf := csrfToken(t, client, ts.URL)

	res, err := client.PostForm(ts.URL+"/restaurants/1/review", url.Values{"rating": {"5"}})
	if err != nil {
		t.Fatalf("POST review: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("review without csrf token: status %d", res.StatusCode)
	}

	res, err = client.PostForm(ts.URL+"/restaurants/1/review", url.Values{"rating": {"5"}, server.CSRFField: {csrf}})
	if err != nil {
		t.Fatalf("POST review: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusFound || !strings.HasPrefix(res.Header.Get("Location"), "/accounts/login") {
		t.Fatalf("anonymous review: status %d location %q", res.StatusCode, res.Header.Get("Location"))
	}

	res, err = client.PostForm(ts.URL+"/accounts/login", url.Values{"username": {"critic"}, "password": {"critic-pw"}, server.CSRFField: {csrf}})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusFound {
		t.Fatalf("login status %d", res.StatusCode)
	}

	res, err = client.PostForm(ts.URL+"/restaurants/1/review", url.Values{"rating": {"5"}, "comment": {"Superb"}, server.CSRFField: {csrf}})
	if err != nil {
		t.Fatalf("POST review: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/restaurants/1/" {
		t.Fatalf("review: status %d location %q", res.StatusCode, res.Header.Get("Location"))
	}

	res, err = client.PostForm(ts.URL+"/restaurants/42/review", url.Values{"rating": {"5"}, server.CSRFField: {csrf}})
	if err != nil {
		t.Fatalf("POST review: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("review of missing restaurant: status %d", res.StatusCode)
	}

	res, err = client.Get(ts.URL + "/restaurants/1/")
	if err != nil {
		t.Fatalf("GET detail: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "Superb") || !strings.Contains(string(body), "Rua Nova") {
		t.Fatalf("detail page: status %d body %s", res.StatusCode, body)
	}

	res, err = client.Get(ts.URL + "/restaurants/1.json")
	if err != nil {
		t.Fatalf("GET json: %v", err)
	}
	var objs []struct {
		Model  string         `json:"model"`
		PK     int64          `json:"pk"`
		Fields map[string]any `json:"fields"`
	}
	err = json.NewDecoder(res.Body).Decode(&objs)
	res.Body.Close()
	if err != nil || len(objs) != 1 || objs[0].Fields["name"] != "Tasca" || objs[0].Fields["date"] != "2015-06-01" {
		t.Fatalf("json detail: %v %+v", err, objs)
	}
}

func TestHTTP_EndToEnd_APIOwnership(t *testing.T) {
	ts := newSite(t)

	token := func(user, pw string) string {
		res, err := http.Post(ts.URL+"/api/token-auth/", "application/json",
			strings.NewReader(fmt.Sprintf(`{"username":%q,"password":%q}`, user, pw)))
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		defer res.Body.Close()
		var out struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil || out.Token == "" {
			t.Fatalf("token decode: %v (status %d)", err, res.StatusCode)
		}
		return out.Token
	}
	call := func(method, path, tok, body string) *http.Response {
		req, _ := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		res.Body.Close()
		return res
	}

	chef, critic := token("chef", "chef-pw"), token("critic", "critic-pw")

	if res := call(http.MethodPut, "/api/restaurants/1/", critic, `{"name":"Stolen"}`); res.StatusCode != http.StatusForbidden {
		t.Fatalf("non-owner update: %d", res.StatusCode)
	}
	if res := call(http.MethodDelete, "/api/restaurants/1/", "", ""); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: %d", res.StatusCode)
	}
	if res := call(http.MethodPut, "/api/restaurants/1/", chef, `{"name":"Tasca Nova"}`); res.StatusCode != http.StatusOK {
		t.Fatalf("owner update: %d", res.StatusCode)
	}

	res, err := http.Get(ts.URL + "/api/restaurants/1/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var r struct {
		Name string `json:"name"`
		User int64  `json:"user"`
	}
	err = json.NewDecoder(res.Body).Decode(&r)
	res.Body.Close()
	if err != nil || r.Name != "Tasca Nova" || r.User != 1 {
		t.Fatalf("after update: %v %+v", err, r)
	}

	if res := call(http.MethodDelete, "/api/addresses/1/", chef, ""); res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete address: %d", res.StatusCode)
	}
	if res := call(http.MethodGet, "/api/restaurants/1/", "", ""); res.StatusCode != http.StatusOK {
		t.Fatalf("restaurant should survive its address: %d", res.StatusCode)
	}
}
