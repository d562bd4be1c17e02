package blockchain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"

	"gfvledger/internal/fundraiser"
	"gfvledger/internal/ledger"
	"gfvledger/internal/sequencer"
)

var (
	ErrUnknownOpCode = errors.New("unknown op code")
	// ErrNoOpCode marks a body that is a plain transfer: shorter than an op
	// code or starting with the zero op of a text comment.
	ErrNoOpCode = errors.New("no op code")
)

// maxTextBytes keeps a length-prefixed text inside one ref cell.
const maxTextBytes = 126

// Call is a ledger call decoded from an in-message body.
type Call struct {
	OpCode   uint32
	QueryID  uint64
	Contract string
	Method   string
	Args     sequencer.Args
}

// DecodeCall reads an in-message body: 32-bit op code, 64-bit query id,
// then the arguments of that op in table order.
func DecodeCall(body *boc.Cell) (*Call, error) {
	if body.BitsAvailableForRead() < 32 {
		return nil, ErrNoOpCode
	}

	code, err := body.ReadUint(32)
	if err != nil {
		return nil, fmt.Errorf("read op code: %w", err)
	}

	if code == 0 {
		return nil, ErrNoOpCode
	}

	op, ok := operationsByCode[uint32(code)]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%08x", ErrUnknownOpCode, code)
	}

	queryID, err := body.ReadUint(64)
	if err != nil {
		return nil, fmt.Errorf("read query id: %w", err)
	}

	args := make(sequencer.Args, len(op.args))
	for _, arg := range op.args {
		value, err := readArg(body, arg.kind)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: read %s: %w", op.contract, op.method, arg.name, err)
		}
		args[arg.name] = value
	}

	return &Call{
		OpCode:   op.code,
		QueryID:  queryID,
		Contract: op.contract,
		Method:   op.method,
		Args:     args,
	}, nil
}

func DecodeCallHex(bodyHex string) (*Call, error) {
	cells, err := boc.DeserializeBocHex(bodyHex)
	if err != nil {
		return nil, fmt.Errorf("deserialize body: %w", err)
	}

	if len(cells) == 0 {
		return nil, errors.New("deserialize body: empty boc")
	}

	return DecodeCall(cells[0])
}

// EncodeCall builds the body for contract.method with the given arguments.
func EncodeCall(contract, method string, queryID uint64, args sequencer.Args) (*boc.Cell, error) {
	op, ok := operationsByMethod[contract+"."+method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownOpCode, contract, method)
	}

	cell := boc.NewCell()
	if err := cell.WriteUint(uint64(op.code), 32); err != nil {
		return nil, err
	}

	if err := cell.WriteUint(queryID, 64); err != nil {
		return nil, err
	}

	for _, arg := range op.args {
		if err := writeArg(cell, arg, args); err != nil {
			return nil, fmt.Errorf("%s.%s: write %s: %w", contract, method, arg.name, err)
		}
	}

	return cell, nil
}

// TransferCall is the call a plain value transfer to the mailbox stands for.
// The fundraiser rejects it, so the attempt is still recorded.
func TransferCall(value uint64) *Call {
	return &Call{
		Contract: sequencer.ContractFundraiser,
		Method:   "receive",
		Args:     sequencer.Args{"amount": strconv.FormatUint(value, 10)},
	}
}

func EncodeCallHex(contract, method string, queryID uint64, args sequencer.Args) (string, error) {
	cell, err := EncodeCall(contract, method, queryID, args)
	if err != nil {
		return "", err
	}

	return toHex(cell)
}

func readArg(cell *boc.Cell, kind argKind) (string, error) {
	switch kind {
	case argAddress:
		var address tlb.MsgAddress
		if err := tlb.Unmarshal(cell, &address); err != nil {
			return "", err
		}

		accountID, err := tongo.AccountIDFromTlb(address)
		if err != nil {
			return "", err
		}

		if accountID == nil {
			return "", errors.New("empty address")
		}

		return ledger.FormatAddress(*accountID), nil
	case argUint64:
		value, err := cell.ReadUint(64)
		if err != nil {
			return "", err
		}

		return strconv.FormatUint(value, 10), nil
	case argBool:
		value, err := cell.ReadBit()
		if err != nil {
			return "", err
		}

		return strconv.FormatBool(value), nil
	case argAmount:
		value, err := cell.ReadBigUint(256)
		if err != nil {
			return "", err
		}

		amount, overflow := uint256.FromBig(value)
		if overflow {
			return "", errors.New("amount overflows 256 bits")
		}

		return amount.Dec(), nil
	case argText:
		ref, err := cell.NextRef()
		if err != nil {
			return "", err
		}

		size, err := ref.ReadUint(8)
		if err != nil {
			return "", err
		}

		raw, err := ref.ReadBytes(int(size))
		if err != nil {
			return "", err
		}

		return string(raw), nil
	}

	return "", fmt.Errorf("unsupported argument kind %d", kind)
}

func writeArg(cell *boc.Cell, arg argSpec, args sequencer.Args) error {
	switch arg.kind {
	case argAddress:
		address, err := args.Address(arg.name)
		if err != nil {
			return err
		}

		return tlb.Marshal(cell, address.ToMsgAddress())
	case argUint64:
		value, err := args.Uint64(arg.name)
		if err != nil {
			return err
		}

		return cell.WriteUint(value, 64)
	case argBool:
		value, err := args.Bool(arg.name)
		if err != nil {
			return err
		}

		return cell.WriteBit(value)
	case argAmount:
		value, err := args.Amount(arg.name)
		if err != nil {
			return err
		}

		return cell.WriteBigUint(value.ToBig(), 256)
	case argText:
		value, err := args.String(arg.name)
		if err != nil {
			return err
		}

		if len(value) > maxTextBytes {
			return fmt.Errorf("%w: %s longer than %d bytes", ledger.ErrInvalidArgument, arg.name, maxTextBytes)
		}

		ref := boc.NewCell()
		if err := ref.WriteUint(uint64(len(value)), 8); err != nil {
			return err
		}

		if err := ref.WriteBytes([]byte(value)); err != nil {
			return err
		}

		return cell.AddRef(ref)
	}

	return fmt.Errorf("unsupported argument kind %d", arg.kind)
}

// PhaseNotice announces a campaign phase change on chain.
type PhaseNotice struct {
	QueryID     uint64
	Phase       fundraiser.Phase
	TicketsSold uint64
}

func EncodePhaseNotice(notice PhaseNotice) (*boc.Cell, error) {
	cell := boc.NewCell()

	if err := cell.WriteUint(uint64(OpPhaseNotice), 32); err != nil {
		return nil, err
	}

	if err := cell.WriteUint(notice.QueryID, 64); err != nil {
		return nil, err
	}

	if err := cell.WriteUint(uint64(notice.Phase), 8); err != nil {
		return nil, err
	}

	if err := cell.WriteUint(notice.TicketsSold, 64); err != nil {
		return nil, err
	}

	return cell, nil
}

func DecodePhaseNotice(cell *boc.Cell) (PhaseNotice, error) {
	code, err := cell.ReadUint(32)
	if err != nil {
		return PhaseNotice{}, err
	}

	if uint32(code) != OpPhaseNotice {
		return PhaseNotice{}, fmt.Errorf("%w: 0x%08x", ErrUnknownOpCode, code)
	}

	queryID, err := cell.ReadUint(64)
	if err != nil {
		return PhaseNotice{}, err
	}

	phase, err := cell.ReadUint(8)
	if err != nil {
		return PhaseNotice{}, err
	}

	ticketsSold, err := cell.ReadUint(64)
	if err != nil {
		return PhaseNotice{}, err
	}

	return PhaseNotice{QueryID: queryID, Phase: fundraiser.Phase(phase), TicketsSold: ticketsSold}, nil
}

func toHex(cell *boc.Cell) (string, error) {
	raw, err := cell.ToBoc()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(raw), nil
}
