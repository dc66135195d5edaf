package mailbox

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/agora/pkg/errors"
)

// DefaultRoster is the fixed set of agent roles. Emergency alerts
// always fan out to the full roster regardless of subscription state.
var DefaultRoster = []string{
	"CEO",
	"CEO_Advisor",
	"Orchestrator",
	"Tech_Lead",
	"Developer",
	"QA",
	"Security_Engineer",
	"DevOps",
	"Documentation",
}

// statusUpdateRecipients receive every status update broadcast.
var statusUpdateRecipients = []string{"Orchestrator", "CEO"}

type rosterFile struct {
	Agents []string `yaml:"agents"`
}

// LoadRosterFile reads an agent roster from a YAML file of the form
//
//	agents:
//	  - CEO
//	  - Developer
func LoadRosterFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to read roster file", err).
			WithContext("path", path)
	}
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, errors.New(errors.CodeDecode, "failed to parse roster file", err).
			WithContext("path", path)
	}
	if len(rf.Agents) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "roster file lists no agents", nil).
			WithContext("path", path)
	}
	return rf.Agents, nil
}
