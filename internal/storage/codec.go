package storage

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so identical arguments always
// produce identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeFields(fields map[string]string) ([]byte, error) {
	if fields == nil {
		fields = map[string]string{}
	}

	return encMode.Marshal(fields)
}

func decodeFields(data []byte) (map[string]string, error) {
	fields := make(map[string]string)
	if len(data) == 0 {
		return fields, nil
	}

	if err := decMode.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	return fields, nil
}
