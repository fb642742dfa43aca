package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"photo-fusion-server/modules/celebify"
	"photo-fusion-server/modules/characterfuse"
	"photo-fusion-server/modules/common/utils"
	"photo-fusion-server/modules/common/workflow"
	"photo-fusion-server/modules/pokefusion"
)

var celebifyCmd = &cobra.Command{
	Use:   "celebify",
	Short: "Add a surprise celebrity to a photo",
	RunE:  celebifyCommand,
}

var characterFuseCmd = &cobra.Command{
	Use:   "characterfuse",
	Short: "Transform the person in a photo into a character",
	RunE:  characterFuseCommand,
}

var pokeFusionCmd = &cobra.Command{
	Use:   "pokefusion",
	Short: "Add a Pokémon to a photo",
	RunE:  pokeFusionCommand,
}

func init() {
	for _, c := range []*cobra.Command{celebifyCmd, characterFuseCmd, pokeFusionCmd} {
		c.Flags().StringP("image", "i", "", "path to the source photo")
		c.Flags().StringP("output", "o", "", "where to write the result (default: download filename in the current directory)")
		_ = c.MarkFlagRequired("image")
	}

	celebifyCmd.Flags().StringP("gender", "g", "", "celebrity gender (male|female)")
	_ = celebifyCmd.MarkFlagRequired("gender")

	characterFuseCmd.Flags().StringP("name", "n", "", "character to transform into")
	_ = characterFuseCmd.MarkFlagRequired("name")

	pokeFusionCmd.Flags().StringP("pokemon", "p", pokefusion.DefaultPokemon, "Pokémon to add")
	pokeFusionCmd.Flags().StringP("style", "s", pokefusion.DefaultStyle, "artistic style")
	pokeFusionCmd.Flags().Bool("random", false, "pick a random Pokémon from the National Pokédex")
}

func celebifyCommand(cmd *cobra.Command, args []string) error {
	svcs, err := newServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	gender, _ := cmd.Flags().GetString("gender")

	m := workflow.NewMachine(celebify.NewMode(svcs.celebify), workflow.WithObserver(cliObserver{}))
	return runOneShot(cmd, m, &celebify.Params{Gender: celebify.Gender(gender)})
}

func characterFuseCommand(cmd *cobra.Command, args []string) error {
	svcs, err := newServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")

	m := workflow.NewMachine(characterfuse.NewMode(svcs.characterFuse), workflow.WithObserver(cliObserver{}))
	return runOneShot(cmd, m, &characterfuse.Params{CharacterName: name})
}

func pokeFusionCommand(cmd *cobra.Command, args []string) error {
	svcs, err := newServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	pokemon, _ := cmd.Flags().GetString("pokemon")
	style, _ := cmd.Flags().GetString("style")
	random, _ := cmd.Flags().GetBool("random")

	page := pokefusion.NewPage(svcs.pokeFusion, workflow.WithObserver(cliObserver{}))
	m := page.Machine()
	if _, err := m.UpdateParams(func(p *pokefusion.Params) { p.Style = style }); err != nil {
		return err
	}

	if random {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		snap, err := page.RandomPokemon(ctx)
		cancel()
		if err != nil {
			return err
		}
		log.Info().Str("pokemon", snap.Params.PokemonName).Msg("🎲 random Pokémon")
		return runOneShot(cmd, m, nil)
	}
	return runOneShot(cmd, m, &pokefusion.Params{PokemonName: pokemon, Style: style})
}

// runOneShot uploads --image, generates once and writes the result image.
// A nil params keeps whatever the machine already holds.
func runOneShot[P any](cmd *cobra.Command, m *workflow.Machine[P], params *P) error {
	imagePath, _ := cmd.Flags().GetString("image")
	output, _ := cmd.Flags().GetString("output")

	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	img, err := utils.ReadImage(f, mime.TypeByExtension(filepath.Ext(imagePath)), cfg.MaxUploadBytes)
	f.Close()
	if err != nil {
		return err
	}

	if _, err := m.Upload(img); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	snap, err := m.Generate(ctx, params)
	if err != nil {
		return err
	}

	filename, result, err := m.Download()
	if err != nil {
		return err
	}
	if output == "" {
		output = filename
	}
	if err := os.WriteFile(output, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	log.Info().Str("mode", m.Mode().Name).Str("file", output).Msg("✅ image saved")
	if snap.Result != nil && snap.Result.Text != "" {
		fmt.Fprintln(cmd.OutOrStdout(), snap.Result.Text)
	}
	return nil
}

// cliObserver prints the rotating loader messages while a run is in flight.
type cliObserver struct{}

func (cliObserver) StateChanged(mode string, state workflow.State, _ any) {
	log.Debug().Str("mode", mode).Str("state", string(state)).Msg("state changed")
}

func (cliObserver) Status(mode, message string) {
	log.Info().Str("mode", mode).Msg("⏳ " + message)
}
