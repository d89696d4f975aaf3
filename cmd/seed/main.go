// Seeds the database with the predefined personas. Safe to rerun, existing
// persona codes are skipped.
package main

import (
	"log"

	"github.com/neurocrypto/newsforge/model"
	"github.com/neurocrypto/newsforge/store"
	"github.com/neurocrypto/newsforge/utils"
	"github.com/neurocrypto/newsforge/utils/dotenv"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

var personas = []model.Persona{
	{
		Code:             "main",
		Name:             "Профессор",
		ProviderName:     "gemini",
		ImagePromptStyle: "High-resolution, educational infographic style, clean lines, minimalist color palette (blues, greys), abstract representation of data, digital art.",
		Description:      "Writes foundational, evergreen educational content. Ignores short-term hype.",
	},
	{
		Code:             "t1",
		Name:             "Стратег",
		ProviderName:     "grok",
		ImagePromptStyle: "Dynamic digital art, stock market chart motifs, bull and bear symbols, green and red neon glow, sense of urgency and volatility, data streams.",
		Description:      "Reacts to market volatility. Activity spikes during volatility.",
	},
	{
		Code:             "t2",
		Name:             "Визионер",
		ProviderName:     "gemini",
		ImagePromptStyle: "Ethereal, futuristic digital painting, cyberpunk aesthetics, holographic elements, deep space background, philosophical and abstract concepts, vibrant purples and cyans.",
		Description:      "Writes about future/philosophy of technology. Creative bursts.",
	},
	{
		Code:             "t3",
		Name:             "Практик",
		ProviderName:     "gemini",
		ImagePromptStyle: "Clean, user-friendly UI/UX design style, screenshots with annotations, step-by-step process visualization, friendly and approachable, light and bright colors.",
		Description:      "Consistently produces useful how-to guides for beginners.",
	},
	{
		Code:             "t4",
		Name:             "Провокатор",
		ProviderName:     "grok",
		ImagePromptStyle: "Glitch art style, mysterious and dark theme, hooded figures, binary code overlays, dramatic lighting, sense of conspiracy and hidden information, cinematic.",
		Description:      "Unpredictable. Simulates 'leaks' or 'insider takes' on events.",
	},
}

func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
}

func main() {
	db, err := utils.GetDBConnection()
	if err != nil {
		log.Fatal("cannot connect to database: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	created, err := store.NewStore(db).SeedPersonas(personas)
	if err != nil {
		log.Fatal("fail to seed personas: ", err)
	}
	Logger.Log.Infof("seeding finished, %d new persona(s) created", created)
}
