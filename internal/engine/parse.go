package engine

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairPool/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ParseAddress parses a hex address. The empty string is the zero address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAmount parses a base-10 amount. The empty string is zero.
func ParseAmount(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	return v, nil
}

func deadlineOf(op model.Operation) uint64 {
	if op.Deadline == nil {
		return math.MaxUint64
	}
	return *op.Deadline
}

// ReadOperations loads a JSONL operation file and checks that sequence
// numbers strictly increase.
func ReadOperations(path string) ([]model.Operation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open operations: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var ops []model.Operation
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if n := len(ops); n > 0 && op.Seq <= ops[n-1].Seq {
			return nil, fmt.Errorf("line %d: seq %d not after %d", lineNo, op.Seq, ops[n-1].Seq)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan operations: %w", err)
	}
	return ops, nil
}
