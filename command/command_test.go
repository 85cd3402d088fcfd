package command_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsanji/pocker-winner-bot/command"
	"github.com/itsanji/pocker-winner-bot/poker"
)

func TestParse_Start(t *testing.T) {
	intent, err := command.Parse("!po start 500 Tuyen, Truong ,Cuong", "anji")
	require.NoError(t, err)

	start, ok := intent.(command.Start)
	require.True(t, ok)
	assert.Equal(t, command.KindStart, start.Kind())
	assert.Equal(t, "anji", start.From())
	assert.True(t, start.BuyIn.Equal(poker.NewAmount(500)))
	assert.Equal(t, []poker.PlayerName{"Tuyen", "Truong", "Cuong"}, start.Players)
}

func TestParse_StartWithSpacedNames(t *testing.T) {
	intent, err := command.Parse("!PO Start 12.5 Anh  Minh,Le Tuan", "")
	require.NoError(t, err)

	start := intent.(command.Start)
	assert.Equal(t, "12.5", start.BuyIn.String())
	assert.Equal(t, []poker.PlayerName{"Anh Minh", "Le Tuan"}, start.Players)
}

func TestParse_StartEmptyRosterIsLeftToTheSession(t *testing.T) {
	intent, err := command.Parse("!po start 400 , ,", "")
	require.NoError(t, err)
	assert.Empty(t, intent.(command.Start).Players)
}

func TestParse_PlayerCommands(t *testing.T) {
	tests := []struct {
		text   string
		want   command.Kind
		player poker.PlayerName
	}{
		{"!po win Tuyen", command.KindWin, "Tuyen"},
		{"!po Tuyen", command.KindWin, "Tuyen"},
		{"!po Anh Minh", command.KindWin, "Anh Minh"},
		{"!po in  Late  Comer ", command.KindIn, "Late Comer"},
		{"!po out Cuong", command.KindOut, "Cuong"},
		{"!po OUT cuong", command.KindOut, "cuong"},
		{"!po pnl Minh", command.KindPnlOne, "Minh"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			intent, err := command.Parse(tt.text, "u")
			require.NoError(t, err)
			assert.Equal(t, tt.want, intent.Kind())

			var got poker.PlayerName
			switch in := intent.(type) {
			case command.Win:
				got = in.Player
			case command.In:
				got = in.Player
			case command.Out:
				got = in.Player
			case command.PnlOne:
				got = in.Player
			}
			assert.Equal(t, tt.player, got)
		})
	}
}

func TestParse_NoArgumentCommands(t *testing.T) {
	tests := map[string]command.Kind{
		"!po pnl":    command.KindPnlAll,
		"!po  pnl  ": command.KindPnlAll,
		"!po events": command.KindEvents,
		"!po event":  command.KindEvents,
		"!po end":    command.KindReset,
		"!po reset":  command.KindReset,
		"!po help":   command.KindHelp,
	}
	for text, want := range tests {
		intent, err := command.Parse(text, "")
		require.NoError(t, err, text)
		assert.Equal(t, want, intent.Kind(), text)
	}
}

func TestParse_Rebuy(t *testing.T) {
	intent, err := command.Parse("!po rebuy Anh Minh 200", "")
	require.NoError(t, err)
	rebuy := intent.(command.Rebuy)
	assert.Equal(t, poker.PlayerName("Anh Minh"), rebuy.Player)
	require.NotNil(t, rebuy.Amount)
	assert.True(t, rebuy.Amount.Equal(poker.NewAmount(200)))

	intent, err = command.Parse("!po rebuy Minh", "")
	require.NoError(t, err)
	rebuy = intent.(command.Rebuy)
	assert.Equal(t, poker.PlayerName("Minh"), rebuy.Player)
	assert.Nil(t, rebuy.Amount, "amount defaults to the buy-in")

	intent, err = command.Parse("!po rebuy 200", "")
	require.NoError(t, err)
	assert.Equal(t, poker.PlayerName("200"), intent.(command.Rebuy).Player, "a lone word is always the player")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		text    string
		wantErr error
	}{
		{"hello there", command.ErrNotACommand},
		{"!pokemon", command.ErrNotACommand},
		{"", command.ErrNotACommand},
		{"!po", command.ErrMalformedCommand},
		{"!po start", command.ErrMalformedCommand},
		{"!po start 400", command.ErrMalformedCommand},
		{"!po start abc Tuyen", command.ErrNotANumber},
		{"!po win", command.ErrMalformedCommand},
		{"!po in   ", command.ErrMalformedCommand},
		{"!po out", command.ErrMalformedCommand},
		{"!po rebuy", command.ErrMalformedCommand},
		{"!po ?what", command.ErrUnknownSubcommand},
		{"!po --force", command.ErrUnknownSubcommand},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := command.Parse(tt.text, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_UsageErrorCarriesUsage(t *testing.T) {
	_, err := command.Parse("!po start x y", "")

	var ue *command.UsageError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, command.UsageStart, ue.Usage)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestParse_BuyInMustBePositive(t *testing.T) {
	for _, text := range []string{"!po start -5 A,B", "!po start 0 A,B", "!po start 0.00 A,B"} {
		t.Run(text, func(t *testing.T) {
			intent, err := command.Parse(text, "x")
			assert.Nil(t, intent)
			assert.ErrorIs(t, err, command.ErrNotANumber)

			var ue *command.UsageError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, command.UsageStart, ue.Usage)
		})
	}
}

func TestIsCommand(t *testing.T) {
	assert.True(t, command.IsCommand("  !Po pnl"))
	assert.True(t, command.IsCommand("!po"))
	assert.False(t, command.IsCommand("!poker"))
	assert.False(t, command.IsCommand("po pnl"))
}
