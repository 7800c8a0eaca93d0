package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the custodial signing orchestrator: the single entry point the
// wallet uses for account lifecycle operations and request submission. It
// owns the client registry and reacts to token lifecycle events emitted by
// the wire clients it constructs.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	accountStore      AccountStore
	requestStore      RequestStore
	notifier          AccountNotifier
	renderer          Renderer
	registry          *ClientRegistry
	allowList         []CustodianMetadata
	deepLinks         *DeepLinkResolver
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	AccountStore    AccountStore
	RequestStore    RequestStore
	Notifier        AccountNotifier
	Renderer        Renderer
	Registry        Registry
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("custody", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("custody"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.notifier == nil {
		builder.notifier = AcceptAllNotifier{}
	}
	if builder.renderer == nil {
		builder.renderer = NopRenderer{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}
	if len(builder.allowList) == 0 {
		builder.allowList = DefaultCustodianAllowList()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.accountStore == nil || builder.requestStore == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.accountStore == nil {
					builder.accountStore = storeProvider.AccountStore()
				}
				if builder.requestStore == nil {
					builder.requestStore = storeProvider.RequestStore()
				}
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.accountStore == nil {
				builder.accountStore = storeProvider.AccountStore()
			}
			if builder.requestStore == nil {
				builder.requestStore = storeProvider.RequestStore()
			}
		}
	}
	if builder.accountStore == nil {
		builder.accountStore = NewMemoryAccountStore()
	}
	if builder.requestStore == nil {
		builder.requestStore = NewMemoryRequestStore()
	}
	if len(builder.clientFactories) == 0 {
		return nil, mapBuildError(builder.errorMapper,
			goerrors.New("core: at least one custodian client factory is required", goerrors.CategoryBadInput).
				WithTextCode(CustodyErrorBadInput))
	}

	service := &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		accountStore:      builder.accountStore,
		requestStore:      builder.requestStore,
		notifier:          builder.notifier,
		renderer:          builder.renderer,
		allowList:         builder.allowList,
		now:               builder.now,
	}
	service.deepLinks = NewDeepLinkResolver(logger)

	registry, err := NewClientRegistry(ClientRegistryConfig{
		Factories:      builder.clientFactories,
		Store:          builder.accountStore,
		RequestTimeout: finalConfig.RequestTimeout,
		HTTPClient:     builder.httpClient,
		Now:            builder.now,
		OnTokenEvent:   service.handleTokenEvent,
	})
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	service.registry = registry

	return service, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		AccountStore:    s.accountStore,
		RequestStore:    s.requestStore,
		Notifier:        s.notifier,
		Renderer:        s.renderer,
		Registry:        s.registry,
	}
}

// AcceptAllNotifier accepts every proposed account change. Hosts that need a
// veto supply their own notifier.
type AcceptAllNotifier struct{}

func (AcceptAllNotifier) AccountCreated(context.Context, Account) (RegistrationDecision, error) {
	return RegistrationDecision{Accepted: true}, nil
}

func (AcceptAllNotifier) AccountDeleted(context.Context, string) error {
	return nil
}

type NopRenderer struct{}

func (NopRenderer) ShowInfoMessage(context.Context, string) {}

func (NopRenderer) ShowErrorMessage(context.Context, string) {}

var (
	_ AccountNotifier = AcceptAllNotifier{}
	_ Renderer        = NopRenderer{}
)
