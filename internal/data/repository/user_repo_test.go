package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/pkg/security"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testNow    = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	testPolicy = security.LockoutPolicy{Threshold: 5, Duration: 2 * time.Hour}
)

func newMockUserRepo(t *testing.T) (pgxmock.PgxPoolIface, UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, NewUserRepository(mock, zap.NewNop())
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: ErrDuplicateEmail,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockUserRepo(t)
			tt.setupMock(mock)

			user := &entity.User{Name: "Budi", Email: "budi@example.com"}
			user.ID = uuid.New()
			err := repo.Create(context.Background(), user)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrDuplicateEmail)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_FindByEmailMissing(t *testing.T) {
	mock, repo := newMockUserRepo(t)
	mock.ExpectQuery(`FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RecordLoginFailure(t *testing.T) {
	id := uuid.New()
	lockUntil := testNow.Add(testPolicy.Duration)

	tests := []struct {
		name        string
		setupMock   func(mock pgxmock.PgxPoolIface)
		wantState   security.LockState
		wantApplied bool
		wantErr     bool
	}{
		{
			name: "counter incremented",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users SET`).
					WithArgs(id, testNow, testPolicy.Threshold, lockUntil).
					WillReturnRows(pgxmock.NewRows([]string{"login_attempts", "lock_until"}).
						AddRow(3, (*time.Time)(nil)))
			},
			wantState:   security.LockState{Attempts: 3},
			wantApplied: true,
		},
		{
			name: "threshold reached sets lock",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users SET`).
					WithArgs(id, testNow, testPolicy.Threshold, lockUntil).
					WillReturnRows(pgxmock.NewRows([]string{"login_attempts", "lock_until"}).
						AddRow(5, &lockUntil))
			},
			wantState:   security.LockState{Attempts: 5, LockUntil: &lockUntil},
			wantApplied: true,
		},
		{
			name: "locked account is not touched",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users SET`).
					WithArgs(id, testNow, testPolicy.Threshold, lockUntil).
					WillReturnError(pgx.ErrNoRows)
			},
			wantApplied: false,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users SET`).
					WillReturnError(errors.New("timeout"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockUserRepo(t)
			tt.setupMock(mock)

			state, applied, err := repo.RecordLoginFailure(context.Background(), id, testNow, testPolicy)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantApplied, applied)
				assert.Equal(t, tt.wantState, state)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_RecordLoginSuccess(t *testing.T) {
	id := uuid.New()

	for _, rows := range []int64{1, 0} {
		mock, repo := newMockUserRepo(t)
		mock.ExpectExec(`SET login_attempts = 0, lock_until = NULL, last_login = \$2`).
			WithArgs(id, testNow).
			WillReturnResult(pgxmock.NewResult("UPDATE", rows))

		applied, err := repo.RecordLoginSuccess(context.Background(), id, testNow)
		require.NoError(t, err)
		assert.Equal(t, rows == 1, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestUserRepository_ConsumePasswordReset(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		rows    int64
		want    bool
		wantErr error
	}{
		{name: "token matches", rows: 1, want: true},
		{name: "token already used or expired", rows: 0, want: false},
		{name: "database error", wantErr: errors.New("broken pipe")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockUserRepo(t)
			exp := mock.ExpectExec(`WHERE id = \$1 AND password_reset_digest = \$2 AND password_reset_expires_at > \$4`).
				WithArgs(id, "digest", "hash", testNow)
			if tt.wantErr != nil {
				exp.WillReturnError(tt.wantErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("UPDATE", tt.rows))
			}

			ok, err := repo.ConsumePasswordReset(context.Background(), id, "digest", "hash", testNow)
			if tt.wantErr != nil {
				assert.ErrorContains(t, err, "broken pipe")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, ok)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_ConsumeEmailVerification(t *testing.T) {
	mock, repo := newMockUserRepo(t)
	mock.ExpectExec(`SET is_email_verified = TRUE`).
		WithArgs("digest", testNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.ConsumeEmailVerification(context.Background(), "digest", testNow)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetPasswordResetTokenMissingUser(t *testing.T) {
	mock, repo := newMockUserRepo(t)
	id := uuid.New()
	mock.ExpectExec(`SET password_reset_digest = \$2, password_reset_expires_at = \$3`).
		WithArgs(id, "digest", testNow.Add(10*time.Minute), testNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetPasswordResetToken(context.Background(), id, "digest", testNow.Add(10*time.Minute), testNow)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ClearExpiredTokens(t *testing.T) {
	mock, repo := newMockUserRepo(t)
	mock.ExpectExec(`WHERE password_reset_expires_at <= \$1 OR email_verification_expires_at <= \$1`).
		WithArgs(testNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.ClearExpiredTokens(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
