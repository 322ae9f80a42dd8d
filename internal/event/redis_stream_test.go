package event

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisStreamPublish(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisStream(client, "", 0)
	account := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	err = sink.Publish(context.Background(),
		AddressFrozen(account, uint256.NewInt(500)),
		FeeRateChanged(300, 500),
	)
	require.NoError(t, err)

	msgs, err := client.XRange(context.Background(), DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, string(KindAddressFrozen), msgs[0].Values["kind"])

	var args map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["args"].(string)), &args))
	require.Equal(t, account.Hex(), args["account"])
	require.Equal(t, "500", args["amount"])
}

func TestLogSince(t *testing.T) {
	log := NewLog()
	ctx := context.Background()
	require.NoError(t, log.Publish(ctx, Paused(common.Address{1}), Unpaused(common.Address{1})))
	require.NoError(t, log.Publish(ctx, FeeRateChanged(0, 10)))

	all := log.Since(0, 0)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Seq)
	require.Equal(t, uint64(3), all[2].Seq)

	tail := log.Since(1, 1)
	require.Len(t, tail, 1)
	require.Equal(t, KindUnpaused, tail[0].Kind)

	require.Empty(t, log.Since(3, 10))
}

func TestLogTrimsOldestRecords(t *testing.T) {
	log := NewLogWithCapacity(3)
	ctx := context.Background()
	for rate := uint64(1); rate <= 5; rate++ {
		require.NoError(t, log.Publish(ctx, FeeRateChanged(rate-1, rate)))
	}

	require.Equal(t, 3, log.Len())
	require.EqualValues(t, 5, log.LastSeq())

	all := log.Since(0, 0)
	require.Len(t, all, 3)
	require.EqualValues(t, 3, all[0].Seq)
	require.Equal(t, "3", all[0].Args["new_rate"])
	require.EqualValues(t, 5, all[2].Seq)

	// a cursor inside the trimmed range resumes at the oldest retained record
	page := log.Since(1, 2)
	require.Len(t, page, 2)
	require.EqualValues(t, 3, page[0].Seq)
	require.EqualValues(t, 4, page[1].Seq)

	tail := log.Since(4, 10)
	require.Len(t, tail, 1)
	require.EqualValues(t, 5, tail[0].Seq)
	require.Empty(t, log.Since(5, 10))

	require.NoError(t, log.Publish(ctx, Paused(common.Address{1}), Unpaused(common.Address{1})))
	all = log.Since(0, 0)
	require.Len(t, all, 3)
	require.EqualValues(t, []uint64{5, 6, 7}, []uint64{all[0].Seq, all[1].Seq, all[2].Seq})
	require.Equal(t, KindUnpaused, all[2].Kind)
}
