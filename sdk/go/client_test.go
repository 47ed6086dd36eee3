package ecosortsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort/internal/app"
	"ecosort/internal/config"
	"ecosort/internal/db"
	"ecosort/internal/engine"
	"ecosort/internal/server"
	ecosortsdk "ecosort/sdk/go"
)

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.FromYAML([]byte(config.DefaultYAML + "timezone: UTC\n"))
	require.NoError(t, err)
	conn, err := app.Open(ctx, db.Config{Workspace: t.TempDir()}, cfg)
	require.NoError(t, err)
	defer conn.Close()
	e := engine.New(conn, cfg)

	handler, err := server.New(server.Config{Engine: e, Auth: server.AuthConfig{JWTSecret: "sdk-secret"}})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	_, err = e.CreateAccount(ctx, engine.AccountInput{ID: "s1", Username: "sam", RoleID: "student", Verified: true})
	require.NoError(t, err)
	_, err = e.AddWaste(ctx, engine.WasteInput{ID: "w1", Prediction: "Recyclable", Points: 50})
	require.NoError(t, err)
	award, err := e.SaveAward(ctx, "admin-1", engine.AwardInput{Name: "Pen", Cost: 30})
	require.NoError(t, err)

	token, err := server.SignToken("sdk-secret", "s1", "", "student", time.Hour)
	require.NoError(t, err)
	client := ecosortsdk.New(srv.URL, token)

	collected, err := client.Collect(ctx, "w1")
	require.NoError(t, err)
	assert.EqualValues(t, 50, collected.NewBalance)

	_, err = client.Collect(ctx, "w1")
	var apiErr *ecosortsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "already_consumed", apiErr.Code)
	assert.False(t, apiErr.Retryable())

	redeemed, err := client.Redeem(ctx, award.ID, "BC-1")
	require.NoError(t, err)
	assert.EqualValues(t, 20, redeemed.NewBalance)
	assert.Equal(t, "BC-1", redeemed.BarcodeID)

	_, err = client.Redeem(ctx, award.ID, "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "insufficient_balance", apiErr.Code)

	ranking, err := client.Rank(ctx, "")
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, "s1", ranking[0].ID)
	assert.EqualValues(t, 20, ranking[0].Points)

	history, err := client.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "redemption", history[0].Kind)
	assert.EqualValues(t, -30, history[0].Delta)
	assert.EqualValues(t, 50, history[1].Delta)

	own, err := client.History(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	_, err = client.History(ctx, "someone-else", 10)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
