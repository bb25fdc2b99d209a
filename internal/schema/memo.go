package schema

import (
	"sync"

	"github.com/graphwarehouse/engine/pkg/utils"
)

const memoCapacity = 512

var memo = struct {
	sync.Mutex
	decoders map[string]*Decoder
}{decoders: make(map[string]*Decoder)}

// CompileCached returns a decoder for fields, reusing one compiled earlier for
// an identical field set. The memo is dropped wholesale when it fills up.
func CompileCached(fields []Field) *Decoder {
	key, err := utils.Fingerprint(fields)
	if err != nil {
		return Compile(fields)
	}

	memo.Lock()
	defer memo.Unlock()
	if d, ok := memo.decoders[key]; ok {
		return d
	}
	if len(memo.decoders) >= memoCapacity {
		clear(memo.decoders)
	}
	d := Compile(fields)
	memo.decoders[key] = d
	return d
}
