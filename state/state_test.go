package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestLedgerUpdate(t *testing.T) {
	require := require.New(t)

	ledger := NewLedger()

	t.Run("credit and debit", func(t *testing.T) {
		require.True(ledger.Update("alice", 1, Available, 100))
		require.Equal(int64(100), ledger.GetBalance("alice", 1, Available))

		require.True(ledger.Update("alice", 1, Available, -40))
		require.Equal(int64(60), ledger.GetBalance("alice", 1, Available))
	})

	t.Run("never negative", func(t *testing.T) {
		require.False(ledger.Update("alice", 1, Available, -1000))
		require.Equal(int64(60), ledger.GetBalance("alice", 1, Available))
	})

	t.Run("zero delta rejected", func(t *testing.T) {
		require.False(ledger.Update("alice", 1, Available, 0))
	})

	t.Run("classes are independent", func(t *testing.T) {
		require.True(ledger.Update("alice", 1, ContractDexMargin, 25))
		require.Equal(int64(60), ledger.GetBalance("alice", 1, Available))
		require.Equal(int64(25), ledger.GetBalance("alice", 1, ContractDexMargin))
	})

	t.Run("total across classes and addresses", func(t *testing.T) {
		require.True(ledger.Update("bob", 1, Available, 15))
		require.Equal(int64(100), ledger.TotalTokens(1))
	})
}

func TestLedgerPropertiesOf(t *testing.T) {
	require := require.New(t)

	ledger := NewLedger()
	require.Empty(ledger.PropertiesOf("carol"))
	require.False(ledger.HasTally("carol"))

	require.True(ledger.Update("carol", 7, Available, 5))
	require.True(ledger.Update("carol", 3, ChannelReserve, 9))
	require.Equal([]uint32{3, 7}, ledger.PropertiesOf("carol"))
	require.True(ledger.HasTally("carol"))

	// an emptied tally drops out of the listing
	require.True(ledger.Update("carol", 7, Available, -5))
	require.Equal([]uint32{3}, ledger.PropertiesOf("carol"))
}

func TestRegistry(t *testing.T) {
	require := require.New(t)

	registry := NewRegistry()
	require.Equal(PropertyVesting+1, registry.NextID())
	all, ok := registry.Get(PropertyALL)
	require.True(ok)
	require.Equal("ALL", all.Name)
	require.True(registry.Exists(PropertyVesting))

	id := registry.Put(&Property{
		Issuer:    "issuer",
		PropType:  PropertyTypeDivisible,
		Name:      "Token A",
		NumTokens: 1000,
		Fixed:     true,
	})
	require.Equal(PropertyVesting+1, id)
	require.True(registry.Exists(id))
	require.False(registry.Exists(id + 1))

	p, ok := registry.Get(id)
	require.True(ok)
	require.Equal("Token A", p.Name)

	t.Run("update replaces", func(t *testing.T) {
		p.Issuer = "new-issuer"
		require.NoError(registry.Update(id, &p))
		got, ok := registry.Get(id)
		require.True(ok)
		require.Equal("new-issuer", got.Issuer)

		require.Error(registry.Update(999, &p))
	})

	t.Run("copies are isolated", func(t *testing.T) {
		got, _ := registry.Get(id)
		got.Name = "mutated"
		fresh, _ := registry.Get(id)
		require.Equal("Token A", fresh.Name)
	})

	t.Run("contract lookup by name", func(t *testing.T) {
		registry.Put(&Property{
			PropType:    PropertyTypeNativeContract,
			Name:        "ALL/dUSD",
			Denominator: 4,
		})
		c, ok := registry.FindContractByName("ALL/dUSD")
		require.True(ok)
		require.Equal(uint32(4), c.Denominator)

		_, ok = registry.FindContractByName("Token A")
		require.False(ok)
	})

	t.Run("pegged lookup by denominator", func(t *testing.T) {
		registry.Put(&Property{
			PropType:    PropertyTypePegged,
			Name:        "dUSD",
			Denominator: 4,
		})
		p, ok := registry.FindPeggedByDenominator(4)
		require.True(ok)
		require.Equal("dUSD", p.Name)

		_, ok = registry.FindPeggedByDenominator(9)
		require.False(ok)
	})
}

func TestCrowdsaleBook(t *testing.T) {
	require := require.New(t)

	book := NewCrowdsaleBook()
	require.Nil(book.Get("issuer"))

	require.True(book.Insert("issuer", &Crowdsale{PropertyID: 3, TokensPerUnit: 100}))
	require.False(book.Insert("issuer", &Crowdsale{PropertyID: 4}))

	c := book.Get("issuer")
	require.NotNil(c)
	require.Equal(uint32(3), c.PropertyID)

	txid := common.HexToHash("0x0a")
	c.Database[txid] = [4]int64{10, 1000, 900, 90}
	records := c.Records()
	require.Len(records, 1)
	require.Equal(int64(900), records[0].UserTokens)

	book.Erase("issuer")
	require.Nil(book.Get("issuer"))

	t.Run("records order is stable", func(t *testing.T) {
		c := &Crowdsale{Database: make(map[common.Hash][4]int64)}
		for i := byte(1); i <= 9; i++ {
			c.Database[common.Hash{i}] = [4]int64{int64(i), 1000, int64(i) * 10, 0}
		}
		records := c.Records()
		require.Len(records, 9)
		for i := range records {
			require.Equal(common.Hash{byte(i + 1)}, records[i].TxID)
		}
		require.Equal(records, c.Records())
	})
}

func TestChannelBook(t *testing.T) {
	require := require.New(t)

	book := NewChannelBook()
	ch := Channel{Multisig: "Qmulti", First: "alice", Second: "bob", ExpiryHeight: 1000}
	require.True(book.Create(ch))
	require.False(book.Create(ch))
	require.True(book.IsChannelAddress("Qmulti"))
	require.False(book.IsChannelAddress("alice"))

	t.Run("participant lookup", func(t *testing.T) {
		got, ok := book.FindByParticipant("bob")
		require.True(ok)
		require.Equal("Qmulti", got.Multisig)

		_, ok = book.FindByParticipant("mallory")
		require.False(ok)
	})

	t.Run("commit entitlement", func(t *testing.T) {
		book.RecordCommit("Qmulti", "alice", 1, 500)
		require.Equal(int64(500), book.Committed("Qmulti", "alice", 1))

		require.False(book.DrawDown("Qmulti", "alice", 1, 600))
		require.True(book.DrawDown("Qmulti", "alice", 1, 200))
		require.Equal(int64(300), book.Committed("Qmulti", "alice", 1))
	})

	t.Run("withdrawal queue", func(t *testing.T) {
		book.QueueWithdrawal(PendingWithdrawal{Address: "alice", Multisig: "Qmulti", Property: 1, Amount: 50, Deadline: 107})
		book.QueueWithdrawal(PendingWithdrawal{Address: "bob", Multisig: "Qmulti", Property: 1, Amount: 20, Deadline: 210})

		require.Empty(book.DueWithdrawals(100))
		due := book.DueWithdrawals(107)
		require.Len(due, 1)
		require.Equal("alice", due[0].Address)
		// consumed, not returned again
		require.Empty(book.DueWithdrawals(107))
	})

	t.Run("expiry update", func(t *testing.T) {
		require.True(book.UpdateExpiry("Qmulti", 1100, 150))
		got, _ := book.Get("Qmulti")
		require.EqualValues(1100, got.ExpiryHeight)
		require.EqualValues(150, got.LastExchangeBlock)

		require.False(book.UpdateExpiry("Qnone", 1, 1))
	})
}

func TestOracleBook(t *testing.T) {
	require := require.New(t)

	book := NewOracleBook()
	require.True(book.Append(9, 100, PricePoint{High: 30, Low: 10, Close: 20}))

	t.Run("history is immutable", func(t *testing.T) {
		require.False(book.Append(9, 100, PricePoint{High: 99, Low: 99, Close: 99}))
		p, ok := book.At(9, 100)
		require.True(ok)
		require.Equal(uint64(20), p.Close)
	})

	t.Run("latest at or before block", func(t *testing.T) {
		require.True(book.Append(9, 105, PricePoint{High: 40, Low: 20, Close: 35}))

		p, ok := book.Latest(9, 104)
		require.True(ok)
		require.Equal(uint64(20), p.Close)

		p, ok = book.Latest(9, 200)
		require.True(ok)
		require.Equal(uint64(35), p.Close)

		_, ok = book.Latest(9, 50)
		require.False(ok)
	})
}

func TestKYCBook(t *testing.T) {
	require := require.New(t)

	book := NewKYCBook()
	require.False(book.IsRegistrar("provider"))

	id, ok := book.RegisterRegistrar("provider", "https://example.com", "Example Inc")
	require.True(ok)
	require.Equal(int64(1), id)

	_, ok = book.RegisterRegistrar("provider", "x", "y")
	require.False(ok)

	t.Run("attestation lookup", func(t *testing.T) {
		_, ok := book.CheckAttestation("alice")
		require.False(ok)

		book.Attest("alice", id, "deadbeef")
		got, ok := book.CheckAttestation("alice")
		require.True(ok)
		require.Equal(id, got)
	})

	t.Run("whitelist match", func(t *testing.T) {
		require.True(Matches(nil, 5))
		require.True(Matches([]int64{1, 2}, 2))
		require.False(Matches([]int64{1, 2}, 5))
	})

	t.Run("registrar handover", func(t *testing.T) {
		require.True(book.MoveRegistrar("provider", "provider2"))
		require.False(book.IsRegistrar("provider"))
		r, ok := book.Registrar("provider2")
		require.True(ok)
		require.Equal(id, r.KYCID)

		require.False(book.MoveRegistrar("provider", "other"))
		require.False(book.MoveRegistrar("provider2", ""))
	})
}

func TestStoreRoundTrip(t *testing.T) {
	require := require.New(t)

	store, err := OpenStore(t.TempDir())
	require.NoError(err)
	defer store.Close()

	books := NewBooks()
	require.True(books.Ledger.Update("alice", 1, Available, 75))
	tokenID := books.Registry.Put(&Property{Name: "Token A", PropType: PropertyTypeDivisible, NumTokens: 75})
	require.True(books.Crowdsales.Insert("issuer", &Crowdsale{PropertyID: 2, TokensPerUnit: 10}))
	require.True(books.Channels.Create(Channel{Multisig: "Qmulti", First: "a", Second: "b", ExpiryHeight: 50}))
	require.True(books.Oracles.Append(1, 10, PricePoint{High: 3, Low: 1, Close: 2}))
	books.KYC.Attest("alice", 0, "")

	require.NoError(store.Save(books, 42))

	restored := NewBooks()
	block, err := store.Load(restored)
	require.NoError(err)
	require.EqualValues(42, block)

	require.Equal(int64(75), restored.Ledger.GetBalance("alice", 1, Available))
	p, ok := restored.Registry.Get(tokenID)
	require.True(ok)
	require.Equal("Token A", p.Name)
	require.NotNil(restored.Crowdsales.Get("issuer"))
	_, ok = restored.Channels.Get("Qmulti")
	require.True(ok)
	pp, ok := restored.Oracles.At(1, 10)
	require.True(ok)
	require.Equal(uint64(2), pp.Close)
	_, ok = restored.KYC.CheckAttestation("alice")
	require.True(ok)

	t.Run("empty store leaves books empty", func(t *testing.T) {
		fresh, err := OpenStore(t.TempDir())
		require.NoError(err)
		defer fresh.Close()

		books := NewBooks()
		block, err := fresh.Load(books)
		require.NoError(err)
		require.EqualValues(0, block)
		require.False(books.Ledger.HasTally("alice"))
	})
}
