package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cmdbot/internal/models"
)

func greetDefinition() Definition {
	return Definition{
		Name:  "/greet",
		Menu:  "/main",
		Args:  []string{"name", "age"},
		Types: map[string]Coercer{"name": String, "age": Int},
		Asks:  []string{"name?", "age?"},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(greetDefinition()))

	err := r.Register(greetDefinition())
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, models.Command("/greet"), regErr.Command)
}

func TestRegisterRejectsMismatchedTypes(t *testing.T) {
	def := greetDefinition()
	def.Types = map[string]Coercer{"name": String, "years": Int}

	var regErr *RegistrationError
	require.ErrorAs(t, NewRegistry().Register(def), &regErr)
}

func TestRegisterRejectsMismatchedAsks(t *testing.T) {
	def := greetDefinition()
	def.Asks = []string{"name?"}

	var regErr *RegistrationError
	require.ErrorAs(t, NewRegistry().Register(def), &regErr)
}

func TestRegisterRejectsTokensOutsideCallbackGrammar(t *testing.T) {
	r := NewRegistry()

	for _, name := range []models.Command{"/set-price", "/two words", "/", "greet", "/a.b"} {
		var regErr *RegistrationError
		assert.ErrorAs(t, r.Register(Definition{Name: name}), &regErr, string(name))
	}

	var regErr *RegistrationError
	require.ErrorAs(t, r.Register(Definition{Name: "/ok", Menu: "/menu-x"}), &regErr)
	assert.Contains(t, regErr.Error(), "/menu-x")
}

func TestRegisterAcceptsUnicodeTokens(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Name: "/café", Menu: "/menü_2"}))

	cb, err := ParseCallback("/café")
	require.NoError(t, err)
	_, ok := r.Get(models.Command(cb.Token))
	assert.True(t, ok)

	cb, err = ParseCallback("/menü_2")
	require.NoError(t, err)
	assert.True(t, r.IsMenu(models.Menu(cb.Token)))
}

func TestRegisterAfterSeal(t *testing.T) {
	r := NewRegistry()
	r.Seal()

	var regErr *RegistrationError
	require.ErrorAs(t, r.Register(greetDefinition()), &regErr)
}

func TestMenusAndLookups(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Name: "/b", Menu: "/tools"}))
	require.NoError(t, r.Register(Definition{Name: "/a", Menu: "/tools"}))
	require.NoError(t, r.Register(Definition{Name: "/c", Menu: "/main"}))
	require.NoError(t, r.Register(Definition{Name: "/hidden"}))

	assert.Equal(t, []models.Menu{"/main", "/tools"}, r.TopLevelMenus())

	defs := r.ByMenu("/tools")
	require.Len(t, defs, 2)
	assert.Equal(t, models.Command("/a"), defs[0].Name)
	assert.Equal(t, models.Command("/b"), defs[1].Name)

	hidden, ok := r.Get("/hidden")
	require.True(t, ok)
	assert.Equal(t, models.NoMenu, hidden.Menu)

	assert.True(t, r.IsMenu("/main"))
	assert.False(t, r.IsMenu("/a"))
}

func TestCallbackRoundTrip(t *testing.T) {
	cases := []Callback{
		{Verb: VerbAsk, Token: "/cmd", Args: []string{"a", "b"}},
		{Verb: VerbRespond, Token: "/cmd", Args: []string{"x"}},
		{Verb: VerbNone, Token: "/menu_main"},
		{Verb: VerbConfirm, Token: "/order_42"},
	}

	for _, want := range cases {
		t.Run(want.Encode(), func(t *testing.T) {
			got, err := ParseCallback(want.Encode())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseCallback(t *testing.T) {
	cb, err := ParseCallback("ask:/greet:Alice")
	require.NoError(t, err)
	assert.Equal(t, VerbAsk, cb.Verb)
	assert.Equal(t, "/greet", cb.Token)
	assert.Equal(t, []string{"Alice"}, cb.Args)

	cb, err = ParseCallback("/greet:Alice;30")
	require.NoError(t, err)
	assert.Equal(t, VerbNone, cb.Verb)
	assert.Equal(t, []string{"Alice", "30"}, cb.Args)

	for _, bad := range []string{"", "greet", "unknown:/greet", "/", "ask:greet"} {
		_, err := ParseCallback(bad)
		assert.ErrorIs(t, err, ErrMalformedCallback, bad)
	}
}

func TestInvoke(t *testing.T) {
	r := NewRegistry()
	table := NewTable("test", r)

	var got Args
	require.NoError(t, table.Bind(greetDefinition(), func(_ context.Context, args Args) ([]models.Payload, error) {
		got = args
		return []models.Payload{models.TextPayload("ok")}, nil
	}))

	def, _ := r.Get("/greet")
	action := table.Actions()["/greet"]

	payloads, err := Invoke(context.Background(), def, action, []string{"Alice", "30"})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "Alice", got.String("name"))
	assert.Equal(t, 30, got.Int("age"))

	got = nil
	_, err = Invoke(context.Background(), def, action, []string{"Alice"})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "expected 2, got 1")
	assert.Nil(t, got)

	_, err = Invoke(context.Background(), def, action, []string{"Alice", "thirty"})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "age", valErr.Argument)
	assert.Equal(t, "int", valErr.Expected)
	assert.Contains(t, valErr.Error(), `"thirty"`)
	assert.Nil(t, got)
}

func TestCoercers(t *testing.T) {
	v, err := Float.Convert(" 2.5 ")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = Bool.Convert("yes")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = Bool.Convert("maybe")
	assert.Error(t, err)
}
