package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterSrc = `
class Counter extends HotReloadProgram {
    @hotreload
    scale(a: number): number {
        return a * 1;
    }

    @hotreload
    shift(a: number): number {
        return a + 0;
    }

    async main(): Promise<number> {
        for (let i = 0; ; i++) {
            print(this.shift(this.scale(i)));
            await sleep_seconds(1);
        }
        return 0;
    }
}
`

func TestParseCounterProgram(t *testing.T) {
	prog, err := Parse(counterSrc)
	require.NoError(t, err)

	assert.Equal(t, "Counter", prog.ClassName)
	assert.Equal(t, "HotReloadProgram", prog.Base)
	require.Len(t, prog.Methods, 3)

	scale := prog.Methods[0]
	assert.Equal(t, "scale", scale.Name)
	assert.Equal(t, []string{"hotreload"}, scale.Decorators)
	require.Len(t, scale.Params, 1)
	assert.Equal(t, "a", scale.Params[0].Name)
	assert.Equal(t, "number", scale.Params[0].Type.Name)
	assert.Equal(t, "number", scale.Return.Name)

	main := prog.Methods[2]
	assert.Equal(t, "main", main.Name)
	assert.True(t, main.Async)
	assert.Empty(t, main.Decorators)
	assert.Equal(t, "Promise<number>", main.Return.Name)
}

func TestParseForSlotsOptional(t *testing.T) {
	prog, err := Parse(`
class P extends HotReloadProgram {
    main(): number {
        for (;;) {
            print(1);
        }
        return 0;
    }
}
`)
	require.NoError(t, err)

	loop, ok := prog.Methods[0].Body.Stmts[0].(*ForStmt)
	require.True(t, ok)
	assert.Nil(t, loop.Init)
	assert.Nil(t, loop.Cond)
	assert.Nil(t, loop.Post)
}

func TestParseForWithAllSlots(t *testing.T) {
	prog, err := Parse(`
class P extends HotReloadProgram {
    main(): number {
        for (let i = 0; i < 10; i++) {
            print(i);
        }
        return 0;
    }
}
`)
	require.NoError(t, err)

	loop := prog.Methods[0].Body.Stmts[0].(*ForStmt)
	init, ok := loop.Init.(*VarDecl)
	require.True(t, ok)
	assert.Equal(t, "let", init.Kw)
	assert.Equal(t, "i", init.Name)

	cond, ok := loop.Cond.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "<", cond.Op)

	post, ok := loop.Post.(*UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, "++", post.Op)
	assert.False(t, post.Prefix)
}

func TestParsePrecedence(t *testing.T) {
	prog, err := Parse(`
class P extends HotReloadProgram {
    main(): number {
        return 1 + 2 * 3;
    }
}
`)
	require.NoError(t, err)

	ret := prog.Methods[0].Body.Stmts[0].(*ReturnStmt)
	add, ok := ret.Value.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", add.Op)
	mul, ok := add.R.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)
}

func TestParseAwaitUnwrapsCall(t *testing.T) {
	prog, err := Parse(`
class P extends HotReloadProgram {
    async main(): Promise<number> {
        await sleep_millis(5);
        return 0;
    }
}
`)
	require.NoError(t, err)

	stmt := prog.Methods[0].Body.Stmts[0].(*ExprStmt)
	await, ok := stmt.X.(*AwaitExpr)
	require.True(t, ok)
	call, ok := await.Operand.(*CallExpr)
	require.True(t, ok)
	assert.Equal(t, "sleep_millis", call.Callee)
}

func TestParseThisMemberAndCall(t *testing.T) {
	prog, err := Parse(`
class P extends HotReloadProgram {
    helper(a: number): number {
        return a;
    }
    main(): number {
        return this.helper(1);
    }
}
`)
	require.NoError(t, err)

	ret := prog.Methods[1].Body.Stmts[0].(*ReturnStmt)
	call, ok := ret.Value.(*CallExpr)
	require.True(t, ok)
	assert.True(t, call.ThisCall)
	assert.Equal(t, "helper", call.Callee)
}

func TestParseRejectsFieldDeclaration(t *testing.T) {
	_, err := Parse(`
class P extends HotReloadProgram {
    counter: number = 0;

    main(): number {
        return 0;
    }
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counter")
	assert.Contains(t, err.Error(), "not a method")
}

func TestParseRejectsMissingParamType(t *testing.T) {
	_, err := Parse(`
class P extends HotReloadProgram {
    f(a): number {
        return a;
    }
    main(): number {
        return 0;
    }
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type annotation")
}

func TestParseRejectsMissingReturnType(t *testing.T) {
	_, err := Parse(`
class P extends HotReloadProgram {
    main() {
        return 0;
    }
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "return type")
}

func TestParseRejectsTrailingJunk(t *testing.T) {
	_, err := Parse(`
class P extends HotReloadProgram {
    main(): number {
        return 0;
    }
}
class Q extends HotReloadProgram {
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one class")
}

func TestParseRejectsBareThis(t *testing.T) {
	_, err := Parse(`
class P extends HotReloadProgram {
    main(): number {
        return this;
    }
}
`)
	require.Error(t, err)
}
