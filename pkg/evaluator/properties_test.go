package evaluator_test

import (
	"fmt"
	"math"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/evaluator"
)

const propertyRounds = 500

func TestAdditionProperty(t *testing.T) {
	f := fuzz.NewWithSeed(1)
	for i := 0; i < propertyRounds; i++ {
		var a, b float64
		f.Fuzz(&a)
		f.Fuzz(&b)
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}

		sum, err := evaluator.Binary(ast.OpAdd, evaluator.Number(a), evaluator.Number(b))
		require.NoError(t, err)
		assert.Equal(t, evaluator.Number(a+b), sum)

		var s string
		f.Fuzz(&s)
		cat, err := evaluator.Binary(ast.OpAdd, evaluator.Number(a), evaluator.String(s))
		require.NoError(t, err)
		assert.Equal(t, evaluator.String(evaluator.FormatNumber(a)+s), cat)
	}
}

func TestEuclideanModuloProperty(t *testing.T) {
	f := fuzz.NewWithSeed(2)
	for i := 0; i < propertyRounds; i++ {
		var a, b int32
		f.Fuzz(&a)
		f.Fuzz(&b)
		if b == 0 {
			continue
		}
		x, y := float64(a), math.Abs(float64(b))
		got, err := evaluator.Binary(ast.OpEuclidMod, evaluator.Number(x), evaluator.Number(y))
		require.NoError(t, err)
		r := float64(got.(evaluator.Number))
		assert.True(t, r >= 0 && r < y, "%v %%%% %v = %v", x, y, r)
		assert.Equal(t, 0.0, math.Mod(x-r, y), "result is congruent to the dividend")

		trunc, err := evaluator.Binary(ast.OpMod, evaluator.Number(x), evaluator.Number(y))
		require.NoError(t, err)
		assert.Equal(t, evaluator.Number(math.Mod(x, y)), trunc)
	}
}

func TestComparisonIsConsistentWithEquality(t *testing.T) {
	f := fuzz.NewWithSeed(3)
	for i := 0; i < propertyRounds; i++ {
		var a, b int16
		f.Fuzz(&a)
		f.Fuzz(&b)
		x, y := evaluator.Number(a), evaluator.Number(b)

		lt, err := evaluator.Binary(ast.OpLt, x, y)
		require.NoError(t, err)
		gt, err := evaluator.Binary(ast.OpGt, x, y)
		require.NoError(t, err)
		eq, err := evaluator.Binary(ast.OpEqEq, x, y)
		require.NoError(t, err)

		holds := 0
		for _, v := range []evaluator.Value{lt, gt, eq} {
			if v == evaluator.Bool(true) {
				holds++
			}
		}
		assert.Equal(t, 1, holds, fmt.Sprintf("exactly one of <, >, == holds for %d and %d", a, b))
	}
}

func TestNegativeIndexProperty(t *testing.T) {
	f := fuzz.NewWithSeed(4).NilChance(0).NumElements(1, 20)
	for i := 0; i < propertyRounds/10; i++ {
		var nums []int8
		f.Fuzz(&nums)
		items := make([]evaluator.Value, len(nums))
		for j, n := range nums {
			items[j] = evaluator.Number(n)
		}
		arr := evaluator.NewArray(items)
		for j := range items {
			front, err := evaluator.IndexGet(arr, evaluator.Number(j))
			require.NoError(t, err)
			back, err := evaluator.IndexGet(arr, evaluator.Number(j-len(items)))
			require.NoError(t, err)
			assert.Equal(t, front, back)
		}
		_, err := evaluator.IndexGet(arr, evaluator.Number(len(items)))
		assert.Error(t, err)
		_, err = evaluator.IndexGet(arr, evaluator.Number(-len(items)-1))
		assert.Error(t, err)
	}
}
