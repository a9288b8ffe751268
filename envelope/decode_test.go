package envelope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradelayer/go-tradelayer/packet"
)

func payloadOf(version, txType uint64, parts ...[]byte) []byte {
	p := append(packet.Compress(version), packet.Compress(txType)...)
	for _, part := range parts {
		p = append(p, part...)
	}
	return p
}

func nulString(s string) []byte {
	return append([]byte(s), 0)
}

func TestDecodeSimpleSend(t *testing.T) {
	require := require.New(t)

	payload := payloadOf(0, uint64(TypeSimpleSend),
		packet.Compress(5),
		packet.Compress(2500),
	)
	env, err := Decode(payload, Meta{Sender: "alice", Receiver: "bob"})
	require.NoError(err)

	send, ok := env.(*SimpleSend)
	require.True(ok)
	require.Equal(uint16(0), send.Version)
	require.Equal(TypeSimpleSend, send.Type)
	require.Equal(uint32(5), send.Property)
	require.Equal(int64(2500), send.Amount)
	require.Equal("alice", send.Sender)
	require.Equal("bob", send.Receiver)
	require.Equal(payload, send.Header().Payload)
}

func TestDecodeUnknownType(t *testing.T) {
	require := require.New(t)

	env, err := Decode(payloadOf(0, 999), Meta{})
	require.ErrorIs(err, ErrUnknownType)
	require.Nil(env)
}

func TestDecodeTruncated(t *testing.T) {
	require := require.New(t)

	t.Run("missing field", func(t *testing.T) {
		// simple send with the amount varint cut off
		payload := payloadOf(0, uint64(TypeSimpleSend), packet.Compress(5))
		env, err := Decode(payload, Meta{})
		require.ErrorIs(err, packet.ErrMalformed)
		require.Nil(env)
	})

	t.Run("unterminated varint", func(t *testing.T) {
		payload := payloadOf(0, uint64(TypeSimpleSend), []byte{0x85}, []byte{0xFF, 0xFF})
		env, err := Decode(payload, Meta{})
		require.ErrorIs(err, packet.ErrMalformed)
		require.Nil(env)
	})

	t.Run("unterminated string", func(t *testing.T) {
		payload := payloadOf(0, uint64(TypeCreatePropertyFixed),
			packet.Compress(2),
			packet.Compress(0),
			[]byte("no terminator"),
		)
		env, err := Decode(payload, Meta{})
		require.ErrorIs(err, packet.ErrMalformed)
		require.Nil(env)
	})

	t.Run("empty payload", func(t *testing.T) {
		env, err := Decode(nil, Meta{})
		require.ErrorIs(err, packet.ErrMalformed)
		require.Nil(env)
	})
}

func TestDecodeCreatePropertyFixed(t *testing.T) {
	require := require.New(t)

	payload := payloadOf(0, uint64(TypeCreatePropertyFixed),
		packet.Compress(2),
		packet.Compress(0),
		nulString("Quantum Miner"),
		nulString("https://example.com"),
		nulString("data"),
		packet.Compress(1000000),
	)
	env, err := Decode(payload, Meta{Sender: "issuer"})
	require.NoError(err)

	create, ok := env.(*CreatePropertyFixed)
	require.True(ok)
	require.Equal(uint16(2), create.PropType)
	require.Equal(uint32(0), create.PrevPropID)
	require.Equal("Quantum Miner", create.Name)
	require.Equal("https://example.com", create.URL)
	require.Equal("data", create.Data)
	require.Equal(int64(1000000), create.Amount)
}

func TestDecodeStringTruncation(t *testing.T) {
	require := require.New(t)

	long := strings.Repeat("x", MaxNameLen+50)
	payload := payloadOf(0, uint64(TypeCreatePropertyFixed),
		packet.Compress(1),
		packet.Compress(0),
		nulString(long),
		nulString("url"),
		nulString(""),
		packet.Compress(7),
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)

	create := env.(*CreatePropertyFixed)
	require.Len(create.Name, MaxNameLen-1)
	require.Equal("url", create.URL)
	require.Equal("", create.Data)
	// fields past the oversized run still decode from the right offsets
	require.Equal(int64(7), create.Amount)
}

func TestDecodeTrailingKYCList(t *testing.T) {
	require := require.New(t)

	t.Run("with ids", func(t *testing.T) {
		payload := payloadOf(0, uint64(TypeCreatePropertyManaged),
			packet.Compress(2),
			packet.Compress(0),
			nulString("Managed"),
			nulString("url"),
			nulString("data"),
			packet.Compress(1),
			packet.Compress(4),
			packet.Compress(200),
		)
		env, err := Decode(payload, Meta{})
		require.NoError(err)
		require.Equal([]int64{1, 4, 200}, env.(*CreatePropertyManaged).KYCIDs)
	})

	t.Run("empty list", func(t *testing.T) {
		payload := payloadOf(0, uint64(TypeCreatePropertyManaged),
			packet.Compress(2),
			packet.Compress(0),
			nulString("Managed"),
			nulString("url"),
			nulString("data"),
		)
		env, err := Decode(payload, Meta{})
		require.NoError(err)
		require.Nil(env.(*CreatePropertyManaged).KYCIDs)
	})
}

func TestDecodeCreateContract(t *testing.T) {
	require := require.New(t)

	payload := payloadOf(0, uint64(TypeCreateContract),
		packet.Compress(4),    // numerator
		packet.Compress(1),    // denominator
		nulString("ALL/dUSD"), // name
		packet.Compress(10080),
		packet.Compress(1),       // notional size
		packet.Compress(3),       // collateral
		packet.Compress(1000000), // margin requirement
		packet.Compress(1),       // inverse quoted
		packet.Compress(12),
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)

	create := env.(*CreateContract)
	require.Equal(uint32(4), create.Numerator)
	require.Equal(uint32(1), create.Denominator)
	require.Equal("ALL/dUSD", create.Name)
	require.Equal(uint32(10080), create.BlocksUntilExpiration)
	require.Equal(uint64(1), create.NotionalSize)
	require.Equal(uint32(3), create.CollateralCurrency)
	require.Equal(uint64(1000000), create.MarginRequirement)
	require.True(create.InverseQuoted)
	require.Equal([]int64{12}, create.KYCIDs)
}

func TestDecodeContractDexTrade(t *testing.T) {
	require := require.New(t)

	// name comes first for contract trades
	payload := payloadOf(0, uint64(TypeContractDexTrade),
		nulString("ALL/dUSD"),
		packet.Compress(100),
		packet.Compress(50000000),
		packet.Compress(uint64(ActionBuy)),
		packet.Compress(10),
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)

	trade := env.(*ContractDexTrade)
	require.Equal("ALL/dUSD", trade.ContractName)
	require.Equal(int64(100), trade.Amount)
	require.Equal(uint64(50000000), trade.EffectivePrice)
	require.Equal(uint8(ActionBuy), trade.TradingAction)
	require.Equal(uint64(10), trade.Leverage)
}

func TestDecodeLegacyEcosystemField(t *testing.T) {
	require := require.New(t)

	// the leading ecosystem varint is consumed but not kept
	payload := payloadOf(0, uint64(TypeClosePosition),
		packet.Compress(1),
		packet.Compress(42),
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)
	require.Equal(uint32(42), env.(*ClosePosition).ContractID)
}

func TestDecodeCreateChannel(t *testing.T) {
	require := require.New(t)

	// block count precedes the multisig address
	payload := payloadOf(0, uint64(TypeCreateChannel),
		packet.Compress(1000),
		nulString("Qmultisig123"),
	)
	env, err := Decode(payload, Meta{Sender: "first", Receiver: "second"})
	require.NoError(err)

	ch := env.(*CreateChannel)
	require.EqualValues(1000, ch.BlocksUntilExpiry)
	require.Equal("Qmultisig123", ch.ChannelAddress)
}

func TestDecodeUpdatePNLTrailingRefs(t *testing.T) {
	require := require.New(t)

	payload := payloadOf(0, uint64(TypeUpdatePNL),
		packet.Compress(4),
		packet.Compress(777),
		packet.Compress(900), // block reference
		packet.Compress(1),   // vout before
		packet.Compress(2),   // vout payment
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)

	pnl := env.(*UpdatePNL)
	require.Equal(uint32(4), pnl.Property)
	require.Equal(int64(777), pnl.Amount)

	t.Run("refs are mandatory", func(t *testing.T) {
		short := payloadOf(0, uint64(TypeUpdatePNL),
			packet.Compress(4),
			packet.Compress(777),
		)
		_, err := Decode(short, Meta{})
		require.ErrorIs(err, packet.ErrMalformed)
	})
}

func TestDecodeActivation(t *testing.T) {
	require := require.New(t)

	payload := payloadOf(0, uint64(TypeActivation),
		packet.Compress(4),
		packet.Compress(500000),
		packet.Compress(1),
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)

	act := env.(*Activation)
	require.Equal(uint16(4), act.FeatureID)
	require.EqualValues(500000, act.ActivationBlock)
	require.Equal(uint32(1), act.MinClientVersion)
}

func TestDecodeAlert(t *testing.T) {
	require := require.New(t)

	payload := payloadOf(0, uint64(TypeAlert),
		packet.Compress(1),
		packet.Compress(600000),
		nulString("upgrade before block 600000"),
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)

	alert := env.(*Alert)
	require.Equal(uint16(1), alert.AlertType)
	require.Equal(uint32(600000), alert.AlertExpiry)
	require.Equal("upgrade before block 600000", alert.AlertText)
}

func TestDecodeVersionCarried(t *testing.T) {
	require := require.New(t)

	payload := payloadOf(1, uint64(TypeTradeOffer),
		packet.Compress(3),
		packet.Compress(1000),
		packet.Compress(500),
		packet.Compress(10),
		packet.Compress(50),
		packet.Compress(uint64(SubActionNew)),
	)
	env, err := Decode(payload, Meta{})
	require.NoError(err)

	offer := env.(*TradeOffer)
	require.Equal(uint16(1), offer.Version)
	require.Equal(uint8(SubActionNew), offer.SubAction)
}
