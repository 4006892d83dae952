package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{name: "equality", script: `JOB_STATUS == "SUCCESS"`},
		{name: "negation", script: `JOB_STATUS != "FAILURE"`},
		{name: "membership", script: `JOB_STATUS in ["SUCCESS", "FAILURE"]`},
		{name: "conjunction", script: `FLOW_NAME == "release" && JOB_STATUS == "SUCCESS"`},
		{name: "syntax error", script: `JOB_STATUS == `, wantErr: true},
		{name: "not a boolean", script: `JOB_STATUS`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.script)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	context := map[string]string{
		"FLOW_NAME":  "release",
		"JOB_STATUS": "SUCCESS",
	}

	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{name: "match", script: `JOB_STATUS == "SUCCESS"`, want: true},
		{name: "no match", script: `JOB_STATUS == "FAILURE"`, want: false},
		{name: "negation", script: `JOB_STATUS != "FAILURE"`, want: true},
		{name: "membership", script: `JOB_STATUS in ["SUCCESS", "FAILURE"]`, want: true},
		{name: "conjunction", script: `FLOW_NAME == "release" && JOB_STATUS == "SUCCESS"`, want: true},
		{name: "variable missing from context", script: `BRANCH == "main"`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Run(tt.script, context)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunSyntaxError(t *testing.T) {
	_, err := Run(`JOB_STATUS ===`, map[string]string{})
	assert.Error(t, err)
}
