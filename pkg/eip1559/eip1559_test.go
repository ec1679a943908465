package eip1559

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeeReader struct {
	tipCap  *big.Int
	baseFee *big.Int
	err     error
}

func (f *fakeFeeReader) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.tipCap), nil
}

func (f *fakeFeeReader) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := &types.Header{}
	if f.baseFee != nil {
		h.BaseFee = new(big.Int).Set(f.baseFee)
	}
	return h, nil
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestSuggestFee_BuffersTipAndDoublesBaseFee(t *testing.T) {
	client := &fakeFeeReader{tipCap: gwei(100), baseFee: gwei(50)}

	maxFee, tip, err := SuggestFee(context.Background(), client)
	require.NoError(t, err)

	assert.Equal(t, gwei(113), tip, "13% buffer on the suggested tip")
	assert.Equal(t, new(big.Int).Add(gwei(100), gwei(113)), maxFee, "2*baseFee + tip")
}

func TestSuggestFee_Floors(t *testing.T) {
	client := &fakeFeeReader{tipCap: big.NewInt(1), baseFee: big.NewInt(7)}

	maxFee, tip, err := SuggestFee(context.Background(), client)
	require.NoError(t, err)

	assert.Equal(t, gwei(2), tip, "tip floor")
	assert.Equal(t, gwei(20), maxFee, "max fee floor")
}

func TestSuggestFee_LegacyChain(t *testing.T) {
	client := &fakeFeeReader{tipCap: gwei(100)}

	maxFee, tip, err := SuggestFee(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, tip, maxFee, "no base fee means tip doubles as max fee")
}

func TestSuggestFee_PropagatesClientError(t *testing.T) {
	boom := errors.New("rpc down")
	_, _, err := SuggestFee(context.Background(), &fakeFeeReader{err: boom})
	require.ErrorIs(t, err, boom)
}
