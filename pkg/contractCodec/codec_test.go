package contractCodec

import (
	"encoding/hex"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const aliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func loadAttributes(t *testing.T) *Codec {
	c, err := Load("testdata/attributes.json", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func Test_Load(t *testing.T) {
	t.Run("Should load the DID contract metadata", func(t *testing.T) {
		c, err := Load("../../assets/did.metadata.json", zap.NewNop())
		assert.Nil(t, err)
		assert.Equal(t, "did", c.ContractName)
		assert.Equal(t, []string{"flip", "get"}, c.Messages())

		flip, err := c.Message("flip")
		assert.Nil(t, err)
		assert.True(t, flip.Mutates)
		assert.Equal(t, [4]byte{0x63, 0x3a, 0xa5, 0x51}, flip.Selector)
	})
	t.Run("Should keep message order from metadata", func(t *testing.T) {
		c := loadAttributes(t)
		assert.Equal(t, []string{"get", "flip", "set_attribute", "transfer_to", "set_mode", "owner"}, c.Messages())
		assert.Equal(t, "0.2.0", c.ContractVersion)
	})
	t.Run("Should fail for a missing file", func(t *testing.T) {
		_, err := Load("testdata/missing.json", zap.NewNop())
		assert.NotNil(t, err)
	})
}

func Test_ParseRejects(t *testing.T) {
	raw, err := os.ReadFile("testdata/attributes.json")
	if err != nil {
		t.Fatal(err)
	}
	valid := string(raw)

	tests := []struct {
		name string
		json string
	}{
		{"not json", `{"spec": `},
		{"missing types", `{"version": "4", "spec": {"messages": []}}`},
		{"old metadata version", `{"version": "3", "spec": {"messages": []}, "types": []}`},
		{"short selector", `{"version": "4", "types": [], "spec": {"messages": [
			{"label": "get", "selector": "0x2f86", "args": []}]}}`},
		{"unknown return type", `{"version": "4", "types": [{"id": 0, "type": {"def": {"primitive": "bool"}}}],
			"spec": {"messages": [{"label": "get", "selector": "0x2f865bd9", "args": [], "returnType": {"type": 9}}]}}`},
		{"duplicate label", `{"version": "4", "types": [], "spec": {"messages": [
			{"label": "get", "selector": "0x2f865bd9", "args": []},
			{"label": "get", "selector": "0x2f865bda", "args": []}]}}`},
	}
	for _, tt := range tests {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json), zap.NewNop())
			assert.True(t, errors.Is(err, ErrInvalidMetadata), "%v", err)
		})
	}

	t.Run("Should accept the fixture", func(t *testing.T) {
		_, err := Parse([]byte(valid), zap.NewNop())
		assert.Nil(t, err)
	})
}

func Test_EncodeCall(t *testing.T) {
	c := loadAttributes(t)
	alice := ss58.MustParseAccountID(aliceAddress)

	t.Run("Should encode a message without arguments as its selector", func(t *testing.T) {
		data, err := c.EncodeCall("flip", nil)
		assert.Nil(t, err)
		assert.Equal(t, mustHex(t, "633aa551"), data)
	})
	t.Run("Should encode string and integer arguments", func(t *testing.T) {
		data, err := c.EncodeCall("set_attribute", []string{`"location"`, "42"})
		assert.Nil(t, err)
		assert.Equal(t, mustHex(t, "11223344"+"206c6f636174696f6e"+"2a00000000000000"), data)

		unquoted, err := c.EncodeCall("set_attribute", []string{"location", "0x2a"})
		assert.Nil(t, err)
		assert.Equal(t, data, unquoted)
	})
	t.Run("Should encode accounts, balances and options", func(t *testing.T) {
		data, err := c.EncodeCall("transfer_to", []string{aliceAddress, "1_000", "Some(0x0102)"})
		assert.Nil(t, err)

		want := mustHex(t, "84a15da1")
		want = append(want, alice.Bytes()...)
		want = append(want, mustHex(t, "e8030000000000000000000000000000")...)
		want = append(want, 0x01, 0x08, 0x01, 0x02)
		assert.Equal(t, want, data)

		none, err := c.EncodeCall("transfer_to", []string{alice.Hex(), "1000", "None"})
		assert.Nil(t, err)
		assert.Equal(t, append(want[:len(want)-4:len(want)-4], 0x00), none)
	})
	t.Run("Should encode enum variants by name", func(t *testing.T) {
		data, err := c.EncodeCall("set_mode", []string{"Private"})
		assert.Nil(t, err)
		assert.Equal(t, mustHex(t, "aabbccdd01"), data)
	})

	errorTests := []struct {
		name    string
		message string
		args    []string
		want    error
	}{
		{"unknown message", "burn", nil, ErrUnknownMessage},
		{"argument count", "set_attribute", []string{"location"}, ErrDecodeMismatch},
		{"negative unsigned", "set_attribute", []string{"location", "-1"}, ErrDecodeMismatch},
		{"overflowing integer", "set_attribute", []string{"location", "18446744073709551616"}, ErrDecodeMismatch},
		{"bad account", "transfer_to", []string{"not-an-address", "1", "None"}, ErrDecodeMismatch},
		{"bad option", "transfer_to", []string{aliceAddress, "1", "Maybe"}, ErrDecodeMismatch},
		{"bad hex", "transfer_to", []string{aliceAddress, "1", "Some(zz)"}, ErrDecodeMismatch},
		{"unknown variant", "set_mode", []string{"Secret"}, ErrDecodeMismatch},
	}
	for _, tt := range errorTests {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			_, err := c.EncodeCall(tt.message, tt.args)
			assert.True(t, errors.Is(err, tt.want), "%v", err)
		})
	}
}

func Test_DecodeReturn(t *testing.T) {
	c := loadAttributes(t)

	t.Run("Should decode Ok(bool)", func(t *testing.T) {
		v, err := c.DecodeReturn("get", []byte{0x00, 0x01})
		assert.Nil(t, err)
		assert.Equal(t, tr.KindTuple, v.Kind)
		assert.Equal(t, "Ok", v.Ident)
		assert.Equal(t, "Ok(true)", v.String())
	})
	t.Run("Should decode a LangError", func(t *testing.T) {
		v, err := c.DecodeReturn("get", []byte{0x01, 0x01})
		assert.Nil(t, err)
		assert.Equal(t, "Err", v.Ident)
		assert.Equal(t, "CouldNotReadInput", v.Items[0].Ident)
	})
	t.Run("Should decode Ok(AccountId)", func(t *testing.T) {
		alice := ss58.MustParseAccountID(aliceAddress)
		v, err := c.DecodeReturn("owner", append([]byte{0x00}, alice.Bytes()...))
		assert.Nil(t, err)
		b, err := v.AsBytes()
		assert.Nil(t, err)
		assert.Equal(t, alice.Bytes(), b)
	})
	t.Run("Should reject trailing and missing bytes", func(t *testing.T) {
		_, err := c.DecodeReturn("get", []byte{0x00, 0x01, 0x00})
		assert.True(t, errors.Is(err, ErrDecodeMismatch))

		_, err = c.DecodeReturn("get", []byte{0x00})
		assert.True(t, errors.Is(err, ErrDecodeMismatch))

		_, err = c.DecodeReturn("get", []byte{0x00, 0x02})
		assert.True(t, errors.Is(err, ErrDecodeMismatch))
	})
	t.Run("Should reject unknown messages", func(t *testing.T) {
		_, err := c.DecodeReturn("burn", []byte{0x00})
		assert.True(t, errors.Is(err, ErrUnknownMessage))
	})
}

func Test_DryRunResult(t *testing.T) {
	c := loadAttributes(t)

	t.Run("Should build a result from a raw dry-run", func(t *testing.T) {
		raw := &chain.DryRunRaw{
			GasRequired:  chain.GasEstimate{RefTime: 1_000_000, ProofSize: 4096},
			DebugMessage: []byte("ok"),
			Flags:        1,
			Data:         []byte{0x00, 0x00},
		}
		res, err := c.NewDryRunResult("get", raw)
		assert.Nil(t, err)
		assert.Equal(t, raw.GasRequired, res.GasRequired)
		assert.True(t, res.Reverted)

		b, err := res.GetMessageResult()
		assert.Nil(t, err)
		assert.False(t, b)
	})

	tests := []struct {
		name string
		data tr.Value
		ok   bool
		want bool
	}{
		{"Ok(true)", tr.NewVariant("Ok", tr.NewBool(true)), true, true},
		{"Ok(false)", tr.NewVariant("Ok", tr.NewBool(false)), true, false},
		{"a bare bool", tr.NewBool(true), false, false},
		{"a two element tuple", tr.NewTuple("", tr.NewBool(true), tr.NewBool(false)), false, false},
		{"an error variant", tr.NewVariant("Err", tr.NewVariant("CouldNotReadInput")), false, false},
		{"a non bool payload", tr.NewVariant("Ok", tr.NewUInt64(1)), false, false},
	}
	for _, tt := range tests {
		t.Run("Should read the message result of "+tt.name, func(t *testing.T) {
			res := &DryRunResult{Data: tt.data}
			got, err := res.GetMessageResult()
			if !tt.ok {
				assert.True(t, errors.Is(err, ErrDecodeMismatch))
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
