package jobs

import (
	"github.com/goran-ethernal/ChainLedger/internal/lockup"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
)

func init() {
	for jobType := range eventKinds {
		job.Register(jobType, newIngestJob(jobType))
	}

	job.Register(TypeAccountLockup, newLockupJob(lockup.AccountLockupTable))
	job.Register(TypePropertyLockup, newLockupJob(lockup.PropertyLockupTable))
	job.Register(TypePropertyMeta, newPropertyMetaJob)
	job.Register(TypePropertyBalance, newPropertyBalanceJob)
	job.Register(TypePropertyBalanceByTransfer, newPropertyBalanceByTransferJob)
	job.Register(TypePropertyAuthorUpdate, newPropertyAuthorUpdateJob)
}
