package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/payment"
	"storefront/internal/store"
	"storefront/internal/testutil"
)

const (
	phonePeURL  = "https://phonepe.test"
	cashfreeURL = "https://cashfree.test/pg"
)

type testEnv struct {
	handler  http.Handler
	db       *gorm.DB
	store    *store.Store
	sessions *auth.Sessions
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	st := store.New(db)
	logger := testutil.Logger()

	ppCfg := payment.PhonePeConfig{
		MerchantID:  "M1",
		SaltKey:     "test-salt",
		SaltIndex:   "1",
		APIURL:      phonePeURL,
		RedirectURL: "https://shop.test/payment/status",
		CallbackURL: "https://shop.test/api/phonepe-webhook",
	}
	simple := payment.NewPhonePeClient(ppCfg, payment.PhonePeSimple)
	standard := payment.NewPhonePeClient(ppCfg, payment.PhonePeStandard)
	cashfree := payment.NewCashfreeClient(payment.CashfreeConfig{
		AppID:      "app",
		SecretKey:  "secret",
		APIURL:     cashfreeURL,
		APIVersion: "2022-09-01",
	})

	providers := []payment.Provider{simple, standard, cashfree}
	byName := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	svc := checkout.New(checkout.Options{
		Store:        st,
		Orchestrator: payment.NewOrchestrator(providers, "https://pay.test/direct", logger),
		Providers:    byName,
		Checkers: map[string]payment.StatusChecker{
			payment.ProviderPhonePeSimple:   simple,
			payment.ProviderPhonePeStandard: standard,
			payment.ProviderCashfree:        cashfree,
		},
		Verifiers: checkout.Verifiers{PhonePe: standard, Cashfree: cashfree},
		Logger:    logger,
	})

	sessions := auth.NewSessions("test-secret", time.Hour, false)
	opts := Options{
		Checkout: svc,
		Store:    st,
		Sessions: sessions,
		Logger:   logger,
	}
	for _, m := range mutate {
		m(&opts)
	}

	return &testEnv{handler: NewRouter(opts), db: db, store: st, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// webhook posts a callback signed the way Cashfree signs it with the test secret.
func (e *testEnv) webhook(t *testing.T, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	const ts = "1700000000"
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(ts))
	mac.Write([]byte(body))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-webhook-timestamp", ts)
	req.Header.Set("x-webhook-signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func (e *testEnv) userCookie(t *testing.T, id uint) *http.Cookie {
	t.Helper()
	token, _, err := e.sessions.Issue(id, "user@shop.test", auth.RoleUser)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.UserCookie, Value: token}
}

func (e *testEnv) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, _, err := e.sessions.Issue(1, "admin@shop.test", auth.RoleAdmin)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.AdminCookie, Value: token}
}
