package provisioner

import (
	"github.com/staex-io/did-provisioner/pkg/signer"
)

// Account is a freshly generated sr25519 account.
type Account struct {
	Phrase  string
	Address string
	Keypair *signer.Keypair
}

func NewAccount() (*Account, error) {
	phrase, err := signer.NewMnemonic()
	if err != nil {
		return nil, err
	}
	kp, err := signer.FromPhrase(phrase)
	if err != nil {
		return nil, err
	}
	return &Account{
		Phrase:  phrase,
		Address: kp.GetAddress(),
		Keypair: kp,
	}, nil
}
