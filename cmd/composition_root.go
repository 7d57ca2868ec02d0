package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	httpin "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/kafka"
	"orderflow/internal/adapters/out/metrics"
	"orderflow/internal/adapters/out/payment"
	"orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/postgres/reviewrepo"
	"orderflow/internal/adapters/out/rabbitmq"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/jobs"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/keymutex"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

const defaultPaymentTimeout = 5 * time.Second

type CompositionRoot struct {
	configs  Config
	settings Settings
	logger   *slog.Logger

	gormDB     *gorm.DB
	uowFactory *postgres.GormUnitOfWorkFactory
	registry   *prometheus.Registry
	metrics    *metrics.Prometheus
	clock      clock.Clock

	// one executor per process so that its per-order locks are shared
	executor *commands.ExecuteCommandHandler
}

func NewCompositionRoot(configs Config, settings Settings, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewPrometheus(registry)
	if err != nil {
		return nil, err
	}

	return &CompositionRoot{
		configs:    configs,
		settings:   settings,
		logger:     logger,
		gormDB:     gormDB,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		registry:   registry,
		metrics:    m,
		clock:      clock.System{},
	}, nil
}

func (c *CompositionRoot) orderUoWFactory() commands.OrderUoWFactory {
	return FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) outboxUoWFactory() commands.OutboxUoWFactory {
	return FuncOutboxUoWFactory(func() commands.OutboxUoW {
		return c.uowFactory.Create()
	})
}

// orderReader loads orders outside a transaction for the read side.
func (c *CompositionRoot) orderReader() queries.OrderReader {
	return c.uowFactory.Create().OrderRepository()
}

func (c *CompositionRoot) CreateExecuteCommandHandler() (*commands.ExecuteCommandHandler, error) {
	if c.executor != nil {
		return c.executor, nil
	}

	policy, err := c.settings.Policy()
	if err != nil {
		return nil, err
	}
	workflow, err := services.NewOrderWorkflow(policy)
	if err != nil {
		return nil, err
	}
	payments, err := c.createPaymentAuthorizer()
	if err != nil {
		return nil, err
	}

	c.executor = commands.NewExecuteCommandHandler(
		c.orderUoWFactory(), workflow, keymutex.New(), c.clock, payments, c.metrics, c.logger,
	)
	return c.executor, nil
}

func (c *CompositionRoot) createPaymentAuthorizer() (ports.PaymentAuthorizer, error) {
	if c.configs.PaymentServiceURL == "" {
		return nil, errors.New("PAYMENT_SERVICE_URL is required")
	}
	timeout := defaultPaymentTimeout
	if c.configs.PaymentTimeout != "" {
		parsed, err := time.ParseDuration(c.configs.PaymentTimeout)
		if err != nil {
			return nil, fmt.Errorf("PAYMENT_TIMEOUT: %w", err)
		}
		timeout = parsed
	}
	return payment.NewClient(c.configs.PaymentServiceURL, timeout)
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() *commands.CreateOrderCommandHandler {
	handler := commands.NewCreateOrderCommandHandler(c.orderUoWFactory(), c.clock)
	return &handler
}

func (c *CompositionRoot) CreateReleaseQuarantineCommandHandler() *commands.ReleaseQuarantineCommandHandler {
	handler := commands.NewReleaseQuarantineCommandHandler(c.orderUoWFactory(), c.logger)
	return &handler
}

func (c *CompositionRoot) CreateAutoApproveDeliveriesCommandHandler() (*commands.AutoApproveDeliveriesCommandHandler, error) {
	executor, err := c.CreateExecuteCommandHandler()
	if err != nil {
		return nil, err
	}
	handler := commands.NewAutoApproveDeliveriesCommandHandler(c.orderUoWFactory(), executor, c.clock, c.metrics, c.logger)
	return &handler, nil
}

func (c *CompositionRoot) CreateExpireNegotiationsCommandHandler() (*commands.ExpireNegotiationsCommandHandler, error) {
	executor, err := c.CreateExecuteCommandHandler()
	if err != nil {
		return nil, err
	}
	handler := commands.NewExpireNegotiationsCommandHandler(c.orderUoWFactory(), executor, c.clock, c.metrics, c.logger)
	return &handler, nil
}

func (c *CompositionRoot) CreateRelayOutboxCommandHandler(publisher ports.EventPublisher) *commands.RelayOutboxCommandHandler {
	handler := commands.NewRelayOutboxCommandHandler(c.outboxUoWFactory(), publisher, c.clock, c.metrics, c.logger)
	return &handler
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.orderReader())
}

func (c *CompositionRoot) CreateGetReviewEligibilityQueryHandler() queries.GetReviewEligibilityQueryHandler {
	return queries.NewGetReviewEligibilityQueryHandler(c.orderReader(), reviewrepo.NewGormReviewLookup(c.gormDB))
}

func (c *CompositionRoot) CreateListOrdersQueryHandler() queries.ListOrdersQueryHandler {
	return queries.NewListOrdersQueryHandler(c.gormDB)
}

// CreateEventPublisher connects to the broker selected by EVENT_BROKER.
// The caller closes it.
func (c *CompositionRoot) CreateEventPublisher() (ports.EventPublisher, error) {
	switch c.configs.EventBroker {
	case BrokerKafka, "":
		producer, err := kafka.NewSaramaProducer(c.configs.KafkaBrokers(), "orderflow")
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return kafka.NewPublisher(producer, c.configs.KafkaOrderEventsTopic), nil
	case BrokerRabbitMQ:
		publisher, err := rabbitmq.Dial(c.configs.RabbitMQURL, c.configs.RabbitMQExchange)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown EVENT_BROKER %q", c.configs.EventBroker)
	}
}

func (c *CompositionRoot) CreateJobManager(publisher ports.EventPublisher) (*jobs.JobManager, error) {
	autoApprove, err := c.CreateAutoApproveDeliveriesCommandHandler()
	if err != nil {
		return nil, err
	}
	expire, err := c.CreateExpireNegotiationsCommandHandler()
	if err != nil {
		return nil, err
	}
	relayCmd, err := c.settings.RelayCommand()
	if err != nil {
		return nil, err
	}

	return jobs.NewJobManager(
		c.settings.Schedules(),
		c.settings.Scheduler.BatchSize,
		autoApprove,
		expire,
		c.CreateRelayOutboxCommandHandler(publisher),
		relayCmd,
		c.logger,
	)
}

func (c *CompositionRoot) CreateHTTPRouter() (*echo.Echo, error) {
	if c.configs.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	executor, err := c.CreateExecuteCommandHandler()
	if err != nil {
		return nil, err
	}

	server := httpin.NewServer(
		executor,
		c.CreateCreateOrderCommandHandler(),
		c.CreateReleaseQuarantineCommandHandler(),
		c.CreateGetOrderQueryHandler(),
		c.CreateGetReviewEligibilityQueryHandler(),
		c.CreateListOrdersQueryHandler(),
	)
	return httpin.NewRouter(server, httpin.RouterConfig{
		JWTSecret: []byte(c.configs.JWTSecret),
		Gatherer:  c.registry,
	})
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncOutboxUoWFactory func() commands.OutboxUoW

func (f FuncOutboxUoWFactory) Create() commands.OutboxUoW {
	return f()
}
