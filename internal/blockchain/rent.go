// internal/blockchain/rent.go
package blockchain

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// AccountStorageOverhead байты, которые учитываются сверх данных аккаунта.
const AccountStorageOverhead = 128

// Значения ренты по умолчанию.
const (
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

// Rent mirrors the layout of the rent sysvar account.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// DefaultRent возвращает параметры ренты кластера по умолчанию.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance returns the lamports an account of size bytes needs to be
// rent exempt.
func (r Rent) MinimumBalance(size uint64) uint64 {
	return uint64(float64((AccountStorageOverhead+size)*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

func (r Rent) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(r.LamportsPerByteYear, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteFloat64(r.ExemptionThreshold, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint8(r.BurnPercent)
}

func (r *Rent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if r.LamportsPerByteYear, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if r.ExemptionThreshold, err = decoder.ReadFloat64(binary.LittleEndian); err != nil {
		return err
	}
	r.BurnPercent, err = decoder.ReadUint8()
	return err
}

// Encode сериализует ренту в данные sysvar-аккаунта.
func (r Rent) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode rent: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRent читает ренту из данных sysvar-аккаунта.
func DecodeRent(data []byte) (Rent, error) {
	var r Rent
	if err := bin.NewBinDecoder(data).Decode(&r); err != nil {
		return Rent{}, fmt.Errorf("%w: rent sysvar: %v", ErrInvalidAccountData, err)
	}
	return r, nil
}
