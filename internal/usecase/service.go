package usecase

import (
	"time"

	"marketplace-api/internal/data/repository"
	"marketplace-api/pkg/metrics"
	"marketplace-api/pkg/notify"
	"marketplace-api/pkg/security"
	"marketplace-api/pkg/storage"
	"marketplace-api/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("marketplace-api/usecase")

// Extensions are the optional collaborators of the services. Zero values
// are safe: tokens go nowhere, uploads are disabled, metrics are dropped.
type Extensions struct {
	Notifier notify.Notifier
	Images   storage.ImageStore
	Metrics  *metrics.Metrics
	Hasher   security.Hasher
	Clock    func() time.Time
}

func (e Extensions) withDefaults(config *utils.Config) Extensions {
	if e.Notifier == nil {
		e.Notifier = notify.Multi{}
	}
	if e.Hasher == nil {
		e.Hasher = security.NewBcryptHasher(config.Auth.BcryptCost, config.Auth.HashWorkers)
	}
	if e.Clock == nil {
		e.Clock = time.Now
	}
	return e
}

type Service struct {
	Auth    AuthService
	User    UserService
	Product ProductService
}

func NewService(repo *repository.Repository, config *utils.Config, log *zap.Logger, ext Extensions) *Service {
	ext = ext.withDefaults(config)

	svc := &Service{
		Auth: NewAuthService(repo.User, config, log, ext),
		User: NewUserService(repo.User, log, ext.Clock),
	}
	if repo.Product != nil {
		svc.Product = NewProductService(repo.Product, ext.Images, log, ext.Clock)
	}
	return svc
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
