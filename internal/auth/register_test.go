package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thecolognehub/colognehub-backend/pkg/config"
	"github.com/thecolognehub/colognehub-backend/pkg/db"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	"github.com/thecolognehub/colognehub-backend/pkg/enums"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
	"github.com/thecolognehub/colognehub-backend/pkg/logger"
	"github.com/thecolognehub/colognehub-backend/pkg/outbox"
)

var registerDDL = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  email_verified INTEGER NOT NULL DEFAULT 0,
  verification_code TEXT,
  verification_expires_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

type registerEnv struct {
	conn   *gorm.DB
	svc    RegisterService
	sender *captureSender
}

func newRegisterEnv(t *testing.T, codeTTL time.Duration) *registerEnv {
	t.Helper()

	dsn := "file:register_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	for _, stmt := range registerDDL {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	logg := logger.New(logger.Options{ServiceName: "register-test", Output: io.Discard})
	sender := &captureSender{}
	svc, err := NewRegisterService(RegisterServiceParams{
		DB:         db.NewWithConn(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		CodeSender: sender,
		MailConfig: config.MailConfig{CodeTTL: codeTTL},
	})
	require.NoError(t, err)

	return &registerEnv{conn: conn, svc: svc, sender: sender}
}

type captureSender struct {
	sendErr error
	sent    []sentCode
}

type sentCode struct {
	email string
	code  string
}

func (c *captureSender) SendVerificationCode(ctx context.Context, email, code string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentCode{email: email, code: code})
	return nil
}

func (e *registerEnv) findUser(t *testing.T, email string) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, e.conn.First(&user, "email = ?", email).Error)
	return &user
}

func (e *registerEnv) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error)
	return count
}

func testRegisterRequest() RegisterRequest {
	return RegisterRequest{
		FirstName: "Yusuf",
		LastName:  "Demir",
		Email:     "Yusuf.Demir@Example.com",
		Password:  "correct horse battery",
	}
}

func TestRegisterThenVerifyEmail(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, testRegisterRequest()))

	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, "yusuf.demir@example.com", env.sender.sent[0].email)
	assert.Len(t, env.sender.sent[0].code, 6)

	user := env.findUser(t, "yusuf.demir@example.com")
	assert.False(t, user.EmailVerified)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)
	require.NotNil(t, user.VerificationCode)
	assert.Equal(t, env.sender.sent[0].code, *user.VerificationCode)
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventUserRegistered))

	require.NoError(t, env.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "yusuf.demir@example.com",
		Code:  env.sender.sent[0].code,
	}))

	user = env.findUser(t, "yusuf.demir@example.com")
	assert.True(t, user.EmailVerified)
	assert.Nil(t, user.VerificationCode)
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventUserVerified))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, env.svc.Register(ctx, testRegisterRequest()))

	err := env.svc.Register(ctx, testRegisterRequest())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var count int64
	require.NoError(t, env.conn.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventUserRegistered))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)

	req := testRegisterRequest()
	req.Password = "short"
	err := env.svc.Register(context.Background(), req)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Empty(t, env.sender.sent)
}

func TestVerifyEmailRejectsWrongCode(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)
	ctx := context.Background()
	require.NoError(t, env.svc.Register(ctx, testRegisterRequest()))

	err := env.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "yusuf.demir@example.com",
		Code:  "000000",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	user := env.findUser(t, "yusuf.demir@example.com")
	assert.False(t, user.EmailVerified)
}

func TestVerifyEmailRejectsExpiredCode(t *testing.T) {
	// Negative TTL stamps the code as already expired.
	env := newRegisterEnv(t, -time.Minute)
	ctx := context.Background()
	require.NoError(t, env.svc.Register(ctx, testRegisterRequest()))

	err := env.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "yusuf.demir@example.com",
		Code:  env.sender.sent[0].code,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestVerifyEmailIsIdempotentOnceVerified(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)
	ctx := context.Background()
	require.NoError(t, env.svc.Register(ctx, testRegisterRequest()))
	require.NoError(t, env.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "yusuf.demir@example.com",
		Code:  env.sender.sent[0].code,
	}))

	// A replayed verify with any code is a no-op.
	require.NoError(t, env.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "yusuf.demir@example.com",
		Code:  "999999",
	}))
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventUserVerified))
}

func TestVerifyEmailUnknownUser(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)

	err := env.svc.VerifyEmail(context.Background(), VerifyEmailRequest{
		Email: "ghost@example.com",
		Code:  "123456",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestResendCodeReplacesPendingCode(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)
	ctx := context.Background()
	require.NoError(t, env.svc.Register(ctx, testRegisterRequest()))
	firstCode := env.sender.sent[0].code

	require.NoError(t, env.svc.ResendCode(ctx, ResendCodeRequest{
		Email: "yusuf.demir@example.com",
	}))
	require.Len(t, env.sender.sent, 2)

	user := env.findUser(t, "yusuf.demir@example.com")
	require.NotNil(t, user.VerificationCode)
	assert.Equal(t, env.sender.sent[1].code, *user.VerificationCode)

	// The old code no longer verifies unless it happens to collide.
	if firstCode != env.sender.sent[1].code {
		err := env.svc.VerifyEmail(ctx, VerifyEmailRequest{
			Email: "yusuf.demir@example.com",
			Code:  firstCode,
		})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestResendCodeRejectsVerifiedAccount(t *testing.T) {
	env := newRegisterEnv(t, 15*time.Minute)
	ctx := context.Background()
	require.NoError(t, env.svc.Register(ctx, testRegisterRequest()))
	require.NoError(t, env.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "yusuf.demir@example.com",
		Code:  env.sender.sent[0].code,
	}))

	err := env.svc.ResendCode(ctx, ResendCodeRequest{Email: "yusuf.demir@example.com"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
