package interp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tshot-runtime/internal/lang"
	"tshot-runtime/internal/validate"
)

func checked(t *testing.T, src string) *validate.Checked {
	t.Helper()
	prog, err := lang.Parse(src)
	require.NoError(t, err)
	c, err := validate.Check(prog)
	require.NoError(t, err)
	return c
}

func TestRunProgram(t *testing.T) {
	c := checked(t, `
class Calc extends HotReloadProgram {
    double(a: number): number {
        return a * 2;
    }

    @hotreload
    half(a: number): number {
        return a / 2;
    }

    async main(): Promise<number> {
        let total = 0;
        for (let i = 0; i < 5; i++) {
            total = total + this.double(i);
        }
        print(total);
        print(this.half(7));
        await sleep_millis(1);
        print(-3 + 1);
        return 0;
    }
}
`)

	var out bytes.Buffer
	require.NoError(t, Run(c, &out))
	assert.Equal(t, "20\n3\n-2\n", out.String())
}

func TestRunWhileLoop(t *testing.T) {
	c := checked(t, `
class P extends HotReloadProgram {
    main(): number {
        let i = 3;
        while (i > 0) {
            print(i);
            i--;
        }
        return 0;
    }
}
`)

	var out bytes.Buffer
	require.NoError(t, Run(c, &out))
	assert.Equal(t, "3\n2\n1\n", out.String())
}

func TestJSLoweringShape(t *testing.T) {
	c := checked(t, `
class P extends HotReloadProgram {
    @hotreload
    shift(a: number): number {
        return a + 0;
    }
    main(): number {
        print(this.shift(1));
        return 0;
    }
}
`)

	js := JS(c)
	assert.Contains(t, js, "function shift(a) {")
	assert.Contains(t, js, "function main() {")
	assert.Contains(t, js, "main();")
	// Types and decorators never survive into the JS lowering.
	assert.NotContains(t, js, "number")
	assert.NotContains(t, js, "hotreload")
}

func TestJSIntegerDivision(t *testing.T) {
	c := checked(t, `
class P extends HotReloadProgram {
    main(): number {
        print(7 / 2);
        return 0;
    }
}
`)

	var out bytes.Buffer
	require.NoError(t, Run(c, &out))
	assert.Equal(t, "3\n", out.String())
}
