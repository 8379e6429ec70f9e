package application_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"drawpool/application"
	"drawpool/domain/entities"
	"drawpool/domain/entropy"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"
	"drawpool/infrastructure"
	"drawpool/repository"
	"drawpool/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type countingScheduler struct {
	notified atomic.Int32
}

func (s *countingScheduler) Notify() { s.notified.Add(1) }

func setupRound(t *testing.T, ctx context.Context, testDB *testutil.TestDatabase, totalShares int, userIDs []string) *entities.Round {
	t.Helper()

	users := repository.NewUserRepository(testDB.DB)
	for _, id := range userIDs {
		_, err := users.Create(ctx, id, 10000)
		require.NoError(t, err)
	}

	round := testutil.CreateTestRound("prod-1", totalShares)
	require.NoError(t, repository.NewRoundRepository(testDB.DB).Create(ctx, round))
	return round
}

func newParticipationHandler(uowFactory application.UnitOfWorkFactory, scheduler interfaces.DrawScheduler) *application.ParticipationHandler {
	return application.NewParticipationHandler(uowFactory, scheduler, nil, application.ParticipationSettings{
		Allocation:          services.AllocationSettings{FreeMaxSharesPerClaim: 3},
		FreeClaimsPerPeriod: 3,
		AllowanceLocation:   time.UTC,
	})
}

func TestConcurrentAllocation_NeverOversells(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	const totalShares = 20
	const buyers = 40

	userIDs := make([]string, buyers)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("user-%02d", i)
	}
	round := setupRound(t, ctx, testDB, totalShares, userIDs)

	uowFactory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	scheduler := &countingScheduler{}
	handler := newParticipationHandler(uowFactory, scheduler)

	var succeeded atomic.Int32
	var mu sync.Mutex
	rejections := map[services.ErrorKind]int{}

	g, gctx := errgroup.WithContext(ctx)
	for _, userID := range userIDs {
		g.Go(func() error {
			_, err := handler.Allocate(gctx, interfaces.AllocationRequest{
				RoundID:     round.ID,
				UserID:      userID,
				SharesCount: 1,
				Kind:        entities.ParticipationKindPaid,
			})
			if err != nil {
				mu.Lock()
				rejections[services.Classify(err)]++
				mu.Unlock()
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(totalShares), succeeded.Load())
	assert.Zero(t, rejections[services.KindInternal], "no allocation may fail with an internal error")
	assert.Zero(t, rejections[services.KindValidation])
	assert.Equal(t, int32(1), scheduler.notified.Load(), "exactly one allocation fills the round")

	final, err := repository.NewRoundRepository(testDB.DB).GetByID(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, totalShares, final.SoldShares)
	assert.Equal(t, totalShares, final.ParticipantCount)
	assert.Equal(t, entities.RoundStatusFull, final.Status)

	snapshots, err := repository.NewConsistencyRepository(testDB.DB).Snapshots(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, totalShares, snapshots[0].LedgerShares)
	assert.Empty(t, snapshots[0].DuplicateNumbers)
	assert.Empty(t, snapshots[0].OutOfRangeParticipationIDs)

	var handoffs int
	err = testDB.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE aggregate_id = $1 AND event_type = $2`,
		round.ID, entities.OutboxRoundFilled).Scan(&handoffs)
	require.NoError(t, err)
	assert.Equal(t, 1, handoffs)

	// Every losing buyer kept their money
	var charged int
	err = testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE balance < 10000`).Scan(&charged)
	require.NoError(t, err)
	assert.Equal(t, totalShares, charged)
}

func TestConcurrentDrawTriggers_ProduceOneResult(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	round := setupRound(t, ctx, testDB, 4, []string{"user-a", "user-b"})
	uowFactory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	participation := newParticipationHandler(uowFactory, nil)

	for _, userID := range []string{"user-a", "user-b"} {
		_, err := participation.Allocate(ctx, interfaces.AllocationRequest{
			RoundID:     round.ID,
			UserID:      userID,
			SharesCount: 2,
			Kind:        entities.ParticipationKindPaid,
		})
		require.NoError(t, err)
	}

	draws := application.NewDrawHandler(
		uowFactory,
		services.NewDrawAlgorithm([]byte("0123456789abcdef0123456789abcdef"), "3.1-hmac-sha256", 1),
		entropy.NewCryptoSource(),
		services.NewOperatorGate(nil),
		nil,
		application.DrawSettings{
			Window:     services.DrawSettings{MinDelay: 0, MaxDelay: time.Hour},
			NumberBase: testutil.TestNumberBase,
		},
	)

	const triggers = 8
	responses := make([]*interfaces.DrawResponse, triggers)
	errs := make([]error, triggers)

	var g errgroup.Group
	for i := 0; i < triggers; i++ {
		trigger := entities.DrawTriggerFill
		if i%2 == 1 {
			trigger = entities.DrawTriggerSweep
		}
		g.Go(func() error {
			responses[i], errs[i] = draws.TriggerDraw(ctx, interfaces.DrawRequest{RoundID: round.ID, Trigger: trigger})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var executed int
	var winningNumber int64
	for i := range responses {
		if errs[i] != nil {
			assert.Equal(t, services.KindConflict, services.Classify(errs[i]), "only a draw still in progress may be reported")
			continue
		}
		if responses[i].Executed {
			executed++
		}
		if winningNumber == 0 {
			winningNumber = responses[i].Result.WinningNumber
		}
		assert.Equal(t, winningNumber, responses[i].Result.WinningNumber)
	}
	assert.Equal(t, 1, executed)

	var results int
	require.NoError(t, testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM draw_results WHERE round_id = $1`, round.ID).Scan(&results))
	assert.Equal(t, 1, results)

	verification, err := draws.VerifyDraw(ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, verification.Valid)

	snapshots, err := repository.NewConsistencyRepository(testDB.DB).Snapshots(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Len(t, snapshots[0].WinnerParticipationIDs, 1)
	assert.True(t, snapshots[0].HasDrawResult)
}
