// Command generate-secrets outputs fresh deposit secrets and topics, along with
// the commitment and nullifier each pair produces.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/Bren2010/mixer/crypto/commitments"
	"github.com/Bren2010/mixer/crypto/suites"
)

var (
	suiteName = flag.StringP("suite", "s", "keccak256", "Hash suite (keccak256, sha256, mimc-bn254).")
	count     = flag.IntP("count", "n", 1, "Number of secrets to generate.")
)

func main() {
	flag.Parse()

	cs, err := suites.FromName(*suiteName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for i := 0; i < *count; i++ {
		if i > 0 {
			fmt.Println()
		}
		if err := generate(cs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func generate(cs suites.Suite) error {
	secret, err := commitments.GenerateSecret()
	if err != nil {
		return err
	}
	topic, err := commitments.GenerateSecret()
	if err != nil {
		return err
	}
	fmt.Printf("Secret:     %v\n", secret)
	fmt.Printf("Topic:      %v\n", topic)
	fmt.Printf("Commitment: %v\n", commitments.Commit(cs, secret))
	fmt.Printf("Nullifier:  %v\n", commitments.Nullify(cs, secret, topic))
	return nil
}
