package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/models"
)

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{"email": "A@Shop.test", "password": "correct horse", "name": "A"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)
	assert.Equal(t, auth.UserCookie, cookie.Name)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = env.do(t, http.MethodPost, "/api/auth/register", map[string]any{"email": "a@shop.test", "password": "correct horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", map[string]any{"email": "b@shop.test", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "a@shop.test", "password": "wrong horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "nobody@shop.test", "password": "correct horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "a@shop.test", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie = sessionCookie(t, rec)

	for _, path := range []string{"/api/me/purchases", "/api/me/orders", "/api/me/wallet", "/api/me/submissions"} {
		rec = env.do(t, http.MethodGet, path, nil, cookie)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = env.do(t, http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@shop.test", decode(t, rec)["user"].(map[string]any)["email"])

	rec = env.do(t, http.MethodGet, "/api/me/purchases", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/payments", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t)
	hash, err := auth.HashPassword("admin password")
	require.NoError(t, err)
	require.NoError(t, env.store.UpsertAdmin(context.Background(), "admin@shop.test", hash))

	rec := env.do(t, http.MethodGet, "/api/admin/payments", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", map[string]any{"email": "admin@shop.test", "password": "nope nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", map[string]any{"email": "admin@shop.test", "password": "admin password"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.Equal(t, auth.AdminCookie, cookie.Name)

	rec = env.do(t, http.MethodGet, "/api/admin/payments?status=initiated", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/payments?status=bogus", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me/wallet", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me/wallet?userId=3", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmissionReviewCreditsWallet(t *testing.T) {
	env := newTestEnv(t)
	user := env.userCookie(t, 5)
	admin := env.adminCookie(t)

	rec := env.do(t, http.MethodPost, "/api/me/submissions", map[string]any{"taskId": "follow-page", "proof": "https://img.test/1.png"}, user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode(t, rec)["submission"].(map[string]any)
	id := int(sub["id"].(float64))

	rec = env.do(t, http.MethodPost, "/api/me/submissions", map[string]any{"taskId": "x"}, admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/me/submissions", map[string]any{"proof": "x"}, user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/submissions?status=pending", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["submissions"], 1)

	approve := "/api/admin/submissions/" + itoa(id) + "/approve"
	rec = env.do(t, http.MethodPost, approve, map[string]any{"reward": 12.5}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, approve, map[string]any{"reward": 12.5}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/submissions/999/reject", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/submissions/abc/reject", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me/wallet", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	wallet := decode(t, rec)["wallet"].(map[string]any)
	assert.Equal(t, 12.5, wallet["balance"])
}

func TestMyPurchasesListsOwnRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := uint(11)

	require.NoError(t, env.store.CreatePayment(ctx, &models.Payment{
		MerchantTransactionID: "T1", UserID: &userID, ProductID: "go-basics", ProductType: models.ProductCourse, Amount: 249,
	}))
	_, err := env.store.TransitionPayment(ctx, "T1", models.PaymentCompleted, "PAYMENT_SUCCESS", "")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/me/purchases", nil, env.userCookie(t, userID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["purchases"], 1)

	rec = env.do(t, http.MethodGet, "/api/me/purchases", nil, env.userCookie(t, 12))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["purchases"])
}

func TestCourseAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := uint(11)
	require.NoError(t, env.store.CreateCourse(ctx, &models.Course{Slug: "go-basics", Title: "Go", Price: 249, Published: true}))

	require.NoError(t, env.store.CreatePayment(ctx, &models.Payment{
		MerchantTransactionID: "T1", UserID: &userID, ProductID: "go-basics", ProductType: models.ProductCourse, Amount: 249,
	}))

	owner := env.userCookie(t, userID)
	rec := env.do(t, http.MethodGet, "/api/me/courses/go-basics", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["purchased"])

	_, err := env.store.TransitionPayment(ctx, "T1", models.PaymentCompleted, "PAYMENT_SUCCESS", "")
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/me/courses/go-basics", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["purchased"])

	rec = env.do(t, http.MethodGet, "/api/me/courses/go-basics", nil, env.userCookie(t, 12))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["purchased"])

	rec = env.do(t, http.MethodGet, "/api/me/courses/missing", nil, owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me", nil, owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
