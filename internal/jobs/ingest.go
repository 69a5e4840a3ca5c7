package jobs

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
	"github.com/goran-ethernal/ChainLedger/internal/contracts"
	"github.com/goran-ethernal/ChainLedger/internal/ingest"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
)

// Ingest job types.
const (
	TypeDevPropertyTransfer         = "dev-property-transfer"
	TypeLockupLockedup              = "lockup-lockedup"
	TypeWithdrawPropertyTransfer    = "withdraw-property-transfer"
	TypePropertyFactoryCreate       = "property-factory-create"
	TypePropertyFactoryChangeAuthor = "property-factory-change-author"
	TypeMetricsFactoryCreate        = "metrics-factory-create"
	TypeMetricsFactoryDestroy       = "metrics-factory-destroy"
	TypePairTransfer                = "pair-transfer"
	TypePairMint                    = "pair-mint"

	TypePropertyDirectoryFactoryCreate   = "property-directory-factory-create"
	TypePropertyDirectoryFactoryRecreate = "property-directory-factory-recreate"
)

type decodeFunc = func(ctx context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error)

// eventKind binds an ingest job type to its contract event and raw table.
type eventKind struct {
	contract string
	event    string
	table    string
	decode   func(deps job.Deps) decodeFunc
	isTarget func(deps job.Deps) func(ctx context.Context, e *chainlog.Entry) (bool, error)
}

var eventKinds = map[string]eventKind{
	TypeDevPropertyTransfer: {
		contract: contracts.Dev,
		event:    "Transfer",
		table:    "dev_property_transfer",
		decode:   decodeDevPropertyTransfer,
		isTarget: isPropertyTransfer,
	},
	TypeLockupLockedup: {
		contract: contracts.Lockup,
		event:    "Lockedup",
		table:    "lockup_lockedup",
		decode:   static(decodeLockupLockedup),
	},
	TypeWithdrawPropertyTransfer: {
		contract: contracts.Withdraw,
		event:    "PropertyTransfer",
		table:    "withdraw_property_transfer",
		decode:   static(decodeWithdrawPropertyTransfer),
	},
	TypePropertyFactoryCreate: {
		contract: contracts.PropertyFactory,
		event:    "Create",
		table:    "property_factory_create",
		decode:   decodePropertyFactoryCreate,
	},
	TypePropertyFactoryChangeAuthor: {
		contract: contracts.PropertyFactory,
		event:    "ChangeAuthor",
		table:    "property_factory_change_author",
		decode:   static(decodePropertyFactoryChangeAuthor),
	},
	TypeMetricsFactoryCreate: {
		contract: contracts.MetricsFactory,
		event:    "Create",
		table:    "metrics_factory_create",
		decode:   static(decodeMetricsFactoryEvent),
	},
	TypeMetricsFactoryDestroy: {
		contract: contracts.MetricsFactory,
		event:    "Destroy",
		table:    "metrics_factory_destroy",
		decode:   static(decodeMetricsFactoryEvent),
	},
	TypePairTransfer: {
		contract: contracts.Pair,
		event:    "Transfer",
		table:    "pair_transfer",
		decode:   static(decodePairTransfer),
	},
	TypePairMint: {
		contract: contracts.Pair,
		event:    "Mint",
		table:    "pair_mint",
		decode:   static(decodePairMint),
	},
	TypePropertyDirectoryFactoryCreate: {
		contract: contracts.PropertyDirectoryFactory,
		event:    "Create",
		table:    "property_directory_factory_create",
		decode:   static(decodePropertyDirectoryFactoryCreate),
	},
	TypePropertyDirectoryFactoryRecreate: {
		contract: contracts.PropertyDirectoryFactory,
		event:    "Recreate",
		table:    "property_directory_factory_recreate",
		decode:   static(decodePropertyDirectoryFactoryRecreate),
	},
}

func static(fn decodeFunc) func(job.Deps) decodeFunc {
	return func(job.Deps) decodeFunc { return fn }
}

// newIngestJob builds the factory of one ingest job type.
func newIngestJob(jobType string) job.Factory {
	return func(cfg config.JobConfig, deps job.Deps) (job.Job, error) {
		kind, ok := eventKinds[jobType]
		if !ok {
			return nil, fmt.Errorf("no event bound to job type %s", jobType)
		}
		if jobType == TypeDevPropertyTransfer && deps.Properties == nil {
			return nil, fmt.Errorf("%s needs a property directory", cfg.Name)
		}

		contract, err := deps.Contracts.Contract(kind.contract)
		if err != nil {
			return nil, err
		}

		spec := ingest.EventSpec{
			JobName:    cfg.Name,
			Contract:   contract,
			EventName:  kind.event,
			Table:      kind.table,
			StartBlock: cfg.StartBlock,
			WindowSize: cfg.WindowSize,
			Decode:     kind.decode(deps),
		}
		if kind.isTarget != nil {
			spec.IsTarget = kind.isTarget(deps)
		}

		ing, err := ingest.NewIngestor(spec, deps.DB, deps.Head, deps.Source, deps.Maintenance, deps.Log)
		if err != nil {
			return nil, err
		}

		return job.New(cfg.Name, func(ctx context.Context) error {
			_, err := ing.Run(ctx)
			return err
		}), nil
	}
}

// isPropertyTransfer keeps Dev transfers with a property on exactly one side.
func isPropertyTransfer(deps job.Deps) func(ctx context.Context, e *chainlog.Entry) (bool, error) {
	return func(ctx context.Context, e *chainlog.Entry) (bool, error) {
		from, err := e.AddressValue("from")
		if err != nil {
			return false, err
		}
		to, err := e.AddressValue("to")
		if err != nil {
			return false, err
		}

		fromIsProperty, err := deps.Properties.IsProperty(ctx, from)
		if err != nil {
			return false, err
		}
		toIsProperty, err := deps.Properties.IsProperty(ctx, to)
		if err != nil {
			return false, err
		}

		return fromIsProperty != toIsProperty, nil
	}
}

func decodeDevPropertyTransfer(deps job.Deps) decodeFunc {
	return func(ctx context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
		from, err := e.AddressValue("from")
		if err != nil {
			return nil, err
		}
		to, err := e.AddressValue("to")
		if err != nil {
			return nil, err
		}
		value, err := e.DecimalValue("value")
		if err != nil {
			return nil, err
		}

		isLockup, err := deps.Properties.IsProperty(ctx, to)
		if err != nil {
			return nil, err
		}

		return &DevPropertyTransfer{
			EventID:          h.EventID,
			BlockNumber:      h.BlockNumber,
			LogIndex:         h.LogIndex,
			TransactionIndex: h.TransactionIndex,
			TransactionHash:  h.TransactionHash,
			From:             from,
			To:               to,
			Value:            value,
			IsLockup:         isLockup,
			RawData:          h.RawData,
		}, nil
	}
}

func decodeLockupLockedup(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	from, err := e.AddressValue("_from")
	if err != nil {
		return nil, err
	}
	property, err := e.AddressValue("_property")
	if err != nil {
		return nil, err
	}
	value, err := e.DecimalValue("_value")
	if err != nil {
		return nil, err
	}

	return &LockupLockedup{
		EventID:          h.EventID,
		BlockNumber:      h.BlockNumber,
		LogIndex:         h.LogIndex,
		TransactionIndex: h.TransactionIndex,
		TransactionHash:  h.TransactionHash,
		From:             from,
		Property:         property,
		TokenValue:       value,
		RawData:          h.RawData,
	}, nil
}

func decodeWithdrawPropertyTransfer(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	property, err := e.AddressValue("_property")
	if err != nil {
		return nil, err
	}
	from, err := e.AddressValue("_from")
	if err != nil {
		return nil, err
	}
	to, err := e.AddressValue("_to")
	if err != nil {
		return nil, err
	}

	return &WithdrawPropertyTransfer{
		EventID:          h.EventID,
		BlockNumber:      h.BlockNumber,
		LogIndex:         h.LogIndex,
		TransactionIndex: h.TransactionIndex,
		TransactionHash:  h.TransactionHash,
		PropertyAddress:  property,
		From:             from,
		To:               to,
		RawData:          h.RawData,
	}, nil
}

// decodePropertyFactoryCreate also registers the new property with the directory,
// so transfers in later windows are recognized without a chain call.
func decodePropertyFactoryCreate(deps job.Deps) decodeFunc {
	return func(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
		from, err := e.AddressValue("_from")
		if err != nil {
			return nil, err
		}
		property, err := e.AddressValue("_property")
		if err != nil {
			return nil, err
		}

		if deps.Properties != nil {
			deps.Properties.Remember(property)
		}

		return &PropertyFactoryCreate{
			EventID:          h.EventID,
			BlockNumber:      h.BlockNumber,
			LogIndex:         h.LogIndex,
			TransactionIndex: h.TransactionIndex,
			TransactionHash:  h.TransactionHash,
			From:             from,
			Property:         property,
			RawData:          h.RawData,
		}, nil
	}
}

func decodePropertyFactoryChangeAuthor(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	property, err := e.AddressValue("_property")
	if err != nil {
		return nil, err
	}
	before, err := e.AddressValue("_beforeAuthor")
	if err != nil {
		return nil, err
	}
	after, err := e.AddressValue("_afterAuthor")
	if err != nil {
		return nil, err
	}

	return &PropertyFactoryChangeAuthor{
		EventID:          h.EventID,
		BlockNumber:      h.BlockNumber,
		LogIndex:         h.LogIndex,
		TransactionIndex: h.TransactionIndex,
		TransactionHash:  h.TransactionHash,
		Property:         property,
		BeforeAuthor:     before,
		AfterAuthor:      after,
		RawData:          h.RawData,
	}, nil
}

func decodeMetricsFactoryEvent(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	from, err := e.AddressValue("_from")
	if err != nil {
		return nil, err
	}
	metrics, err := e.AddressValue("_metrics")
	if err != nil {
		return nil, err
	}

	return &MetricsFactoryEvent{
		EventID:          h.EventID,
		BlockNumber:      h.BlockNumber,
		LogIndex:         h.LogIndex,
		TransactionIndex: h.TransactionIndex,
		TransactionHash:  h.TransactionHash,
		From:             from,
		Metrics:          metrics,
		RawData:          h.RawData,
	}, nil
}

func decodePairTransfer(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	from, err := e.AddressValue("from")
	if err != nil {
		return nil, err
	}
	to, err := e.AddressValue("to")
	if err != nil {
		return nil, err
	}
	value, err := e.DecimalValue("value")
	if err != nil {
		return nil, err
	}

	return &PairTransfer{
		EventID:          h.EventID,
		BlockNumber:      h.BlockNumber,
		LogIndex:         h.LogIndex,
		TransactionIndex: h.TransactionIndex,
		TransactionHash:  h.TransactionHash,
		From:             from,
		To:               to,
		TokenValue:       value,
		RawData:          h.RawData,
	}, nil
}

func decodePairMint(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	sender, err := e.AddressValue("sender")
	if err != nil {
		return nil, err
	}
	amount0, err := e.DecimalValue("amount0")
	if err != nil {
		return nil, err
	}
	amount1, err := e.DecimalValue("amount1")
	if err != nil {
		return nil, err
	}

	return &PairMint{
		EventID:          h.EventID,
		BlockNumber:      h.BlockNumber,
		LogIndex:         h.LogIndex,
		TransactionIndex: h.TransactionIndex,
		TransactionHash:  h.TransactionHash,
		Sender:           sender,
		Amount0:          amount0,
		Amount1:          amount1,
		RawData:          h.RawData,
	}, nil
}

func decodePropertyDirectoryFactoryCreate(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	directory, err := e.AddressValue("_propertyDirectory")
	if err != nil {
		return nil, err
	}
	author, err := e.AddressValue("_author")
	if err != nil {
		return nil, err
	}
	name, err := e.StringValue("_name")
	if err != nil {
		return nil, err
	}
	symbol, err := e.StringValue("_symbol")
	if err != nil {
		return nil, err
	}

	return &PropertyDirectoryFactoryCreate{
		EventID:           h.EventID,
		BlockNumber:       h.BlockNumber,
		LogIndex:          h.LogIndex,
		TransactionIndex:  h.TransactionIndex,
		TransactionHash:   h.TransactionHash,
		PropertyDirectory: directory,
		Author:            author,
		Name:              name,
		Symbol:            symbol,
		RawData:           h.RawData,
	}, nil
}

func decodePropertyDirectoryFactoryRecreate(_ context.Context, e *chainlog.Entry, h ingest.EventHeader) (any, error) {
	old, err := e.AddressValue("_old")
	if err != nil {
		return nil, err
	}
	replacement, err := e.AddressValue("_new")
	if err != nil {
		return nil, err
	}

	return &PropertyDirectoryFactoryRecreate{
		EventID:          h.EventID,
		BlockNumber:      h.BlockNumber,
		LogIndex:         h.LogIndex,
		TransactionIndex: h.TransactionIndex,
		TransactionHash:  h.TransactionHash,
		Old:              old,
		New:              replacement,
		RawData:          h.RawData,
	}, nil
}
