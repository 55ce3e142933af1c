package app

const (
	Name           = "murmurtone"
	DisplayName    = "MurmurTone"
	WebsiteURL     = "https://murmurtone.com"
	SourceURL      = "https://github.com/tuckerandrew21/MurmurTone"
	ConfigFilename = "settings-app.json"
	DBFilename     = "settings.db"
	LogFilename    = "settings.log"
	ModelsDirName  = "models"
	GPUDirName     = "gpu"
)
