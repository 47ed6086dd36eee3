package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"ecosort/internal/app"
	"ecosort/internal/codec"
	"ecosort/internal/config"
	"ecosort/internal/db"
	"ecosort/internal/domain"
	"ecosort/internal/engine"
	"ecosort/internal/engine/auth"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

// Now advances one second per call so records never share a timestamp.
func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type testEnv struct {
	Engine engine.Engine
	Clock  *clock
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	cfg, err := config.FromYAML([]byte(config.DefaultYAML + "timezone: UTC\n"))
	require.NoError(t, err)
	ctx := context.Background()
	conn, err := app.Open(ctx, db.Config{Workspace: t.TempDir()}, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	clk := &clock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	eng := engine.New(conn, cfg)
	eng.Now = clk.Now
	return testEnv{Engine: eng, Clock: clk, Ctx: ctx}
}

func (env testEnv) account(t *testing.T, id, role string) domain.Account {
	t.Helper()
	a, err := env.Engine.CreateAccount(env.Ctx, engine.AccountInput{ID: id, Username: "user-" + id, RoleID: role, Verified: true})
	require.NoError(t, err)
	return a
}

func (env testEnv) waste(t *testing.T, id string, points int64) domain.WasteItem {
	t.Helper()
	w, err := env.Engine.AddWaste(env.Ctx, engine.WasteInput{ID: id, Class: "Plastic", Prediction: "Recyclable", Points: points})
	require.NoError(t, err)
	return w
}

// fund credits points to an account through a fresh waste item.
func (env testEnv) fund(t *testing.T, accountID string, points int64) {
	t.Helper()
	w := env.waste(t, uuid.NewString(), points)
	_, err := env.Engine.Collect(env.Ctx, accountID, w.ID)
	require.NoError(t, err)
}

func (env testEnv) award(t *testing.T, name string, cost int64) domain.Award {
	t.Helper()
	a, err := env.Engine.SaveAward(env.Ctx, "admin-1", engine.AwardInput{Name: name, Cost: cost})
	require.NoError(t, err)
	return a
}

func (env testEnv) balance(t *testing.T, id string) int64 {
	t.Helper()
	p, err := env.Engine.AccountPoints(env.Ctx, id)
	require.NoError(t, err)
	return p.Points
}

func TestCollectIsOneTime(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.waste(t, "qr-1", 30)

	res, err := env.Engine.Collect(env.Ctx, "A", "qr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.PointsAwarded)
	assert.Equal(t, int64(30), res.NewBalance)

	_, err = env.Engine.Collect(env.Ctx, "A", "qr-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyConsumed)
	assert.Equal(t, int64(30), env.balance(t, "A"))

	item, err := env.Engine.Repo.GetWasteItem(env.Ctx, "qr-1")
	require.NoError(t, err)
	assert.True(t, item.Collected)

	trail, err := env.Engine.AuditTrail(env.Ctx, "waste_item", "qr-1", 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "waste.collected", trail[0].Type)
}

func TestCollectErrors(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.waste(t, "qr-1", 10)

	_, err := env.Engine.Collect(env.Ctx, "A", "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.Engine.Collect(env.Ctx, "A", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Engine.Collect(env.Ctx, "ghost", "qr-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	item, err := env.Engine.Repo.GetWasteItem(env.Ctx, "qr-1")
	require.NoError(t, err)
	assert.False(t, item.Collected, "failed collect must not consume the item")
}

func TestConcurrentCollectExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 4; i++ {
		env.account(t, fmt.Sprintf("acct-%d", i), "student")
	}
	env.waste(t, "qr-race", 25)

	const n = 12
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, errs[i] = env.Engine.Collect(env.Ctx, fmt.Sprintf("acct-%d", i%4), "qr-race")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyConsumed)
	}
	assert.Equal(t, 1, wins)

	var total int64
	for i := 0; i < 4; i++ {
		total += env.balance(t, fmt.Sprintf("acct-%d", i))
	}
	assert.Equal(t, int64(25), total)
}

func TestRedeemScenario(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.fund(t, "A", 100)
	env.fund(t, "A", 20)
	require.Equal(t, int64(120), env.balance(t, "A"))
	mug := env.award(t, "Mug", 80)

	res, err := env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: mug.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.NewBalance)
	assert.Equal(t, "Mug", res.AwardName)
	assert.NotEmpty(t, res.RedemptionID)

	_, err = env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: mug.ID})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, int64(40), env.balance(t, "A"))

	recs, err := env.Engine.Redemptions(env.Ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.RedemptionActive, recs[0].Status)
	assert.Equal(t, int64(80), recs[0].Cost)
}

func TestRedeemNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.fund(t, "A", 50)
	mug := env.award(t, "Mug", 10)

	_, err := env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "ghost", AwardID: mug.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConcurrentRedeemNeverOverdraws(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.fund(t, "A", 100)
	voucher := env.award(t, "Voucher", 30)

	const n = 10
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, errs[i] = env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: voucher.ID})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	}
	assert.Equal(t, 3, wins)
	assert.Equal(t, int64(10), env.balance(t, "A"))
}

func TestBalanceConservation(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	small := env.award(t, "Sticker", 5)
	big := env.award(t, "Bottle", 40)

	for _, p := range []int64{10, 25, 0, 40, 7} {
		env.fund(t, "A", p)
	}
	for _, a := range []domain.Award{small, big, small} {
		_, err := env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: a.ID})
		require.NoError(t, err)
	}

	rec, err := env.Engine.ReconcileBalance(env.Ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(82), rec.Credits)
	assert.Equal(t, int64(50), rec.Debits)
	assert.Equal(t, int64(32), rec.Stored)
	assert.True(t, rec.Consistent)
}

func TestRedeemTokens(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.fund(t, "A", 100)
	pen := env.award(t, "Pen", 10)

	res, err := env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: pen.ID, Token: "BC-001"})
	require.NoError(t, err)
	require.NotNil(t, res.Token)
	assert.Equal(t, "BC-001", *res.Token)

	_, err = env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: pen.ID, Token: "BC-001"})
	assert.ErrorIs(t, err, domain.ErrDuplicateToken)
	assert.Equal(t, int64(90), env.balance(t, "A"))

	long := fmt.Sprintf("%065d", 1)
	res, err = env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: pen.ID, Token: long})
	require.NoError(t, err)
	assert.Nil(t, res.Token)
}

func TestRedeemOnBehalfNeedsRedeemPage(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.account(t, "B", "student")
	env.fund(t, "B", 50)
	pen := env.award(t, "Pen", 10)

	_, err := env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", ActorRole: "student", AccountID: "B", AwardID: pen.ID})
	var forbidden auth.ForbiddenError
	require.True(t, errors.As(err, &forbidden))
	assert.Equal(t, config.PageRedeem, forbidden.Page)

	res, err := env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "admin-1", ActorRole: "admin", AccountID: "B", AwardID: pen.ID})
	require.NoError(t, err)
	assert.Equal(t, "B", res.AccountID)
	assert.Equal(t, int64(40), res.NewBalance)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	env.waste(t, "w1", 5)

	del, err := env.Engine.SoftDelete(env.Ctx, "admin-1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", del.DeletedBy)

	active, err := env.Engine.ListWaste(env.Ctx, false, 0)
	require.NoError(t, err)
	assert.Empty(t, active)
	deleted, err := env.Engine.QueryDeleted(env.Ctx, engine.DeletedQuery{})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, domain.StateDeleted, deleted[0].State.State)

	again, err := env.Engine.SoftDelete(env.Ctx, "admin-2", "w1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	var already *domain.AlreadyDeletedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, del.DeletedAt, already.DeletedAt)
	assert.Equal(t, "admin-1", again.DeletedBy)

	item, err := env.Engine.Repo.GetWasteItem(env.Ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, del.DeletedAt, *item.DeletedAt)
	assert.Equal(t, "admin-1", *item.DeletedBy)

	res, err := env.Engine.Restore(env.Ctx, "admin-3", "w1")
	require.NoError(t, err)
	assert.True(t, res.WasDeleted)

	active, err = env.Engine.ListWaste(env.Ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.Lifecycle{State: domain.StateRestored, By: "admin-3", At: res.RestoredAt}, active[0].State)
	deleted, err = env.Engine.QueryDeleted(env.Ctx, engine.DeletedQuery{})
	require.NoError(t, err)
	assert.Empty(t, deleted)

	// Restoring an active item still stamps provenance.
	res2, err := env.Engine.Restore(env.Ctx, "admin-4", "w1")
	require.NoError(t, err)
	assert.False(t, res2.WasDeleted)
	item, err = env.Engine.Repo.GetWasteItem(env.Ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "admin-4", *item.RestoredBy)

	_, err = env.Engine.SoftDelete(env.Ctx, "admin-1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.Engine.Restore(env.Ctx, "admin-1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSoftDeleteByDate(t *testing.T) {
	env := newTestEnv(t)
	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := env.Engine.AddWaste(env.Ctx, engine.WasteInput{ID: fmt.Sprintf("d%d", i), Points: 1, CreatedAt: day.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := env.Engine.AddWaste(env.Ctx, engine.WasteInput{ID: "other-day", Points: 1, CreatedAt: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	for _, id := range []string{"d0", "d3"} {
		_, err := env.Engine.SoftDelete(env.Ctx, "admin-1", id)
		require.NoError(t, err)
	}

	res, err := env.Engine.SoftDeleteByDate(env.Ctx, "admin-2", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, engine.BulkDeleteResult{Total: 5, NewlyDeleted: 3, AlreadyDeleted: 2, Actor: "admin-2", Date: "2024-05-01"}, res)

	d0, err := env.Engine.Repo.GetWasteItem(env.Ctx, "d0")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", *d0.DeletedBy, "already deleted items keep their provenance")
	other, err := env.Engine.Repo.GetWasteItem(env.Ctx, "other-day")
	require.NoError(t, err)
	assert.False(t, other.Deleted)

	res, err = env.Engine.SoftDeleteByDate(env.Ctx, "admin-2", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewlyDeleted)
	assert.Equal(t, 5, res.AlreadyDeleted)

	_, err = env.Engine.SoftDeleteByDate(env.Ctx, "admin-2", "2023-01-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.Engine.SoftDeleteByDate(env.Ctx, "admin-2", "01/05/2024")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryDeletedFiltersAndOrder(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"a", "b", "c"} {
		env.waste(t, id, 1)
	}
	env.Clock.Set(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	_, err := env.Engine.SoftDelete(env.Ctx, "alice", "a")
	require.NoError(t, err)
	env.Clock.Set(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	_, err = env.Engine.SoftDelete(env.Ctx, "bob", "b")
	require.NoError(t, err)
	env.Clock.Set(time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC))
	_, err = env.Engine.SoftDelete(env.Ctx, "alice", "c")
	require.NoError(t, err)

	all, err := env.Engine.QueryDeleted(env.Ctx, engine.DeletedQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	byAlice, err := env.Engine.QueryDeleted(env.Ctx, engine.DeletedQuery{DeletedBy: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(byAlice))

	window, err := env.Engine.QueryDeleted(env.Ctx, engine.DeletedQuery{DateFrom: "2024-06-02", DateTo: "2024-06-03"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(window))

	_, err = env.Engine.QueryDeleted(env.Ctx, engine.DeletedQuery{DateFrom: "June"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func ids(views []engine.WasteView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestRankAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.account(t, "B", "staff")
	env.account(t, "C", "student")
	env.account(t, "root", "admin")

	env.Clock.Set(time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC))
	env.fund(t, "A", 150)
	env.fund(t, "root", 999)
	env.Clock.Set(time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC))
	env.fund(t, "A", 50)
	env.fund(t, "B", 100)

	allTime, err := env.Engine.RankAccounts(env.Ctx, engine.RankScope{})
	require.NoError(t, err)
	assert.Equal(t, []engine.RankEntry{
		{AccountID: "A", Username: "user-A", Email: "-", Points: 200},
		{AccountID: "B", Username: "user-B", Email: "-", Points: 100},
		{AccountID: "C", Username: "user-C", Email: "-", Points: 0},
	}, allTime)

	month, err := env.Engine.RankAccounts(env.Ctx, engine.RankScope{Month: "2024-05"})
	require.NoError(t, err)
	require.Len(t, month, 3)
	assert.Equal(t, "B", month[0].AccountID)
	assert.Equal(t, int64(100), month[0].Points)
	assert.Equal(t, "A", month[1].AccountID)
	assert.Equal(t, int64(50), month[1].Points)
	assert.Equal(t, "C", month[2].AccountID)
	assert.Equal(t, int64(0), month[2].Points)

	_, err = env.Engine.RankAccounts(env.Ctx, engine.RankScope{Month: "2024-13"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRankTieBreakByAccountID(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "zed", "student")
	env.account(t, "amy", "student")
	env.fund(t, "zed", 10)
	env.fund(t, "amy", 10)

	ranked, err := env.Engine.RankAccounts(env.Ctx, engine.RankScope{})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "amy", ranked[0].AccountID)
	assert.Equal(t, "zed", ranked[1].AccountID)
}

func TestHistoryMergesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.account(t, "A", "student")
	env.account(t, "B", "student")
	pen := env.award(t, "Pen", 5)

	env.fund(t, "A", 10)
	env.fund(t, "B", 20)
	_, err := env.Engine.Redeem(env.Ctx, engine.RedeemOptions{ActorID: "A", AwardID: pen.ID})
	require.NoError(t, err)

	hist, err := env.Engine.History(env.Ctx, engine.HistoryQuery{AccountID: "A"})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, engine.KindRedemption, hist[0].Kind)
	assert.Equal(t, int64(-5), hist[0].Delta)
	assert.Equal(t, engine.KindCollection, hist[1].Kind)

	global, err := env.Engine.History(env.Ctx, engine.HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, global, 2)
	assert.Equal(t, engine.KindRedemption, global[0].Kind)
	assert.Equal(t, "B", global[1].AccountID)

	onlyCollections, err := env.Engine.History(env.Ctx, engine.HistoryQuery{Kind: engine.KindCollection})
	require.NoError(t, err)
	assert.Len(t, onlyCollections, 2)

	_, err = env.Engine.History(env.Ctx, engine.HistoryQuery{Kind: "refund"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWasteReadPaths(t *testing.T) {
	env := newTestEnv(t)
	fc, err := codec.New([]byte("test-secret"))
	require.NoError(t, err)
	env.Engine.Codec = fc

	encClass, err := fc.Encrypt("Glass")
	require.NoError(t, err)
	encPred, err := fc.Encrypt("Recyclable")
	require.NoError(t, err)
	encConf, err := fc.Encrypt("0.91")
	require.NoError(t, err)

	_, err = env.Engine.AddWaste(env.Ctx, engine.WasteInput{ID: "enc", Class: encClass, Prediction: encPred, Confidence: encConf, Points: 10})
	require.NoError(t, err)
	_, err = env.Engine.AddWaste(env.Ctx, engine.WasteInput{ID: "plain", Class: "Food", Prediction: "Non-Recyclable", Points: 0})
	require.NoError(t, err)
	_, err = env.Engine.AddWaste(env.Ctx, engine.WasteInput{ID: "broken", Class: "enc:v1:AAAA", Prediction: "Recyclable", Points: 3})
	require.NoError(t, err)
	env.account(t, "A", "student")
	_, err = env.Engine.Collect(env.Ctx, "A", "enc")
	require.NoError(t, err)

	v, err := env.Engine.GetWaste(env.Ctx, "enc")
	require.NoError(t, err)
	require.NotNil(t, v.Class)
	assert.Equal(t, "Glass", *v.Class)
	require.NotNil(t, v.Confidence)
	assert.InDelta(t, 0.91, *v.Confidence, 1e-9)

	b, err := env.Engine.GetWaste(env.Ctx, "broken")
	require.NoError(t, err)
	assert.Nil(t, b.Class)

	sum, err := env.Engine.Summarize(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.WasteSummary{Recyclable: 2, NonRecyclable: 1}, sum)

	log, err := env.Engine.WasteLog(env.Ctx)
	require.NoError(t, err)
	names := map[string]string{}
	for _, entry := range log {
		names[entry.ID] = entry.Username
	}
	assert.Equal(t, "user-A", names["enc"])
	assert.Equal(t, engine.ClaimantNotClaimable, names["plain"])
	assert.Equal(t, engine.ClaimantNone, names["broken"])

	mine, err := env.Engine.UserCollections(env.Ctx, "A")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Glass", mine[0].Class)
}

func TestAwardCatalog(t *testing.T) {
	env := newTestEnv(t)
	a := env.award(t, "Tote", 50)

	updated, err := env.Engine.SaveAward(env.Ctx, "admin-1", engine.AwardInput{ID: a.ID, Name: "Tote bag", Cost: 45})
	require.NoError(t, err)
	assert.Equal(t, "Tote bag", updated.Name)
	assert.Equal(t, a.CreatedAt, updated.CreatedAt)

	_, err = env.Engine.SaveAward(env.Ctx, "admin-1", engine.AwardInput{Name: "Free", Cost: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = env.Engine.SaveAward(env.Ctx, "admin-1", engine.AwardInput{ID: "missing", Name: "X", Cost: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.Engine.DeleteAward(env.Ctx, "admin-1", a.ID))
	awards, err := env.Engine.ListAwards(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, awards)
	assert.ErrorIs(t, env.Engine.DeleteAward(env.Ctx, "admin-1", a.ID), domain.ErrNotFound)
}
