package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	tooManyResultsRe = regexp.MustCompile(`Query returned more than \d+ results`)
	suggestedRangeRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// TooManyResults is a node's refusal of an eth_getLogs range.
// Some providers suggest a narrower range, e.g.
// "Query returned more than 10000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."
type TooManyResults struct {
	Suggested bool
	From, To  uint64
}

// AsTooManyResults reports whether err is a "too many results" refusal, with the suggested range when given.
func AsTooManyResults(err error) (TooManyResults, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return TooManyResults{}, false
	}

	data := fmt.Sprint(dataErr.ErrorData())
	if !tooManyResultsRe.MatchString(data) {
		return TooManyResults{}, false
	}

	m := suggestedRangeRe.FindStringSubmatch(data)
	if m == nil {
		return TooManyResults{}, true
	}

	from, fromErr := hexutil.DecodeUint64(m[1])
	to, toErr := hexutil.DecodeUint64(m[2])
	if fromErr != nil || toErr != nil {
		return TooManyResults{}, true
	}

	return TooManyResults{Suggested: true, From: from, To: to}, true
}
