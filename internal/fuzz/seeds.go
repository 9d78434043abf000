package fuzztests

import (
	"testing"
)

const (
	maxFuzzInput = 1 << 16
	maxSeedBytes = 64 << 10
)

var languageSeeds = []string{
	"",
	"x = 1\nprint(x)\nx = 2\nprint(x)\n",
	"x = 1\ny = x / 0\n",
	"def f(n):\n    if n < 2:\n        return n\n    return f(n - 1) + f(n - 2)\nprint(f(10))\n",
	"class C:\n    def __init__(self, v):\n        self.v = v\n    def __eq__(self, o):\n        return self.v == o.v\nprint(C(1) == C(1))\n",
	"d = {'a': [1, 2, (3, 4)], 'b': {1, 2}}\nd['c'] = d\nprint(d)\n",
	"try:\n    raise ValueError('x')\nexcept ValueError as e:\n    print(e)\nfinally:\n    pass\n",
	"xs = [i * i for i in range(10) if i % 2]\nprint(sum(xs), sorted(xs, reverse=True))\n",
	"s = f'{1 + 1:>4}|{\"q\"!r}'\nprint(s.upper().split('|'))\n",
	"import math\nimport random\nrandom.seed(3)\nprint(math.sqrt(2), random.randint(1, 6))\n",
	"while True:\n    pass\n",
	"def g():\n    global k\n    k = lambda a, *b, **c: (a, b, c)\ng()\nprint(k(1, 2, z=3))\n",
	"x = ((((((1))))))\ny = [[[[]]]]\n",
	"if x:\n\tpass\n  else:\n",
	"s = 'unterminated\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range languageSeeds {
		f.Add(clampSeed([]byte(s)))
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

// truncateForLog shortens input for failure messages.
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(append([]byte(nil), input[:maxLen]...), "..."...)
}
