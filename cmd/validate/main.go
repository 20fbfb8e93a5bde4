// Command validate runs a single order validation over an input stream and
// prints the public output bundle in hex. With --encode it builds an input
// stream from flags instead.
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/util"
	"github.com/vocdoni/z-orders/validator"
)

func main() {
	input := flag.String("input", "-", "input stream file, - for stdin")
	hexInput := flag.Bool("hex", false, "the input stream is hex encoded")
	verbose := flag.Bool("verbose", false, "log the decoded result flags")

	encode := flag.Bool("encode", false, "build an input stream from the order flags and print it in hex")
	payload := flag.String("payload", "", "order payload (encode mode)")
	commitment := flag.String("commitment", "", "hex order commitment, the payload digest if empty (encode mode)")
	nullifier := flag.String("nullifier", "", "hex order nullifier, a random one if empty (encode mode)")
	balance := flag.Uint64("balance", 0, "private account balance (encode mode)")
	margin := flag.Uint64("margin", 0, "required margin (encode mode)")
	used := flag.StringSlice("used", nil, "hex nullifiers already spent (encode mode)")
	flag.Parse()

	log.Init(log.LogLevelInfo, "stderr", nil)

	if *encode {
		stream, err := encodeStream(*payload, *commitment, *nullifier, *balance, *margin, *used)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(hex.EncodeToString(stream))
		return
	}

	stream, err := readStream(*input, *hexInput)
	if err != nil {
		log.Fatal(err)
	}
	bundle, err := validator.Execute(stream)
	if err != nil {
		if errors.Is(err, validator.ErrMalformedInput) {
			log.Errorw(err, "malformed input stream")
			os.Exit(1)
		}
		log.Fatal(err)
	}
	if *verbose {
		out, err := validator.DecodeOutput(bundle)
		if err != nil {
			log.Fatal(err)
		}
		log.Infow("order validated", "result", out.Result.String())
	}
	fmt.Println(hex.EncodeToString(bundle))
}

// readStream reads the whole input stream from a file or stdin.
func readStream(input string, isHex bool) ([]byte, error) {
	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %w", err)
	}
	if !isHex {
		return data, nil
	}
	stream, err := hex.DecodeString(util.TrimHex(string(bytes.TrimSpace(data))))
	if err != nil {
		return nil, fmt.Errorf("cannot decode hex input: %w", err)
	}
	return stream, nil
}

// encodeStream builds an input stream. The declared balance hash is always
// the digest of the balance.
func encodeStream(payload, commitment, nullifier string, balance, margin uint64, used []string) ([]byte, error) {
	in := &validator.Inputs{
		Payload:        []byte(payload),
		Balance:        balance,
		RequiredMargin: margin,
	}
	var err error
	if commitment == "" {
		in.Order.Commitment = validator.Hash(in.Payload)
	} else if in.Order.Commitment, err = parseDigest(commitment); err != nil {
		return nil, fmt.Errorf("commitment: %w", err)
	}
	if nullifier == "" {
		in.Order.Nullifier = types.Digest(util.Random32())
	} else if in.Order.Nullifier, err = parseDigest(nullifier); err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}
	in.Order.BalanceHash = validator.HashBalance(balance)
	for _, u := range used {
		d, err := parseDigest(u)
		if err != nil {
			return nil, fmt.Errorf("used nullifier %s: %w", u, err)
		}
		in.NullifierSet = append(in.NullifierSet, d)
	}
	return in.Bytes(), nil
}

func parseDigest(s string) (types.Digest, error) {
	b, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return types.Digest{}, err
	}
	return types.DigestFromBytes(b)
}
