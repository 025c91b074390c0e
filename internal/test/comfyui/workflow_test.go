package comfyui_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthik-excrin/shootx-v2/internal/comfyui"
)

func TestBuildTryOnWorkflow(t *testing.T) {
	workflow := comfyui.BuildTryOnWorkflow("customer.png", "garment.png")

	require.Len(t, workflow.Prompt, 4)
	assert.Equal(t, "LoadImage", workflow.Prompt["1"].ClassType)
	assert.Equal(t, "customer.png", workflow.Prompt["1"].Inputs["image"])
	assert.Equal(t, "LoadImage", workflow.Prompt["2"].ClassType)
	assert.Equal(t, "garment.png", workflow.Prompt["2"].Inputs["image"])
	assert.Equal(t, "VirtualTryOnNode", workflow.Prompt["3"].ClassType)
	assert.Equal(t, "SaveImage", workflow.Prompt["4"].ClassType)
	assert.Equal(t, "tryon_result", workflow.Prompt["4"].Inputs["filename_prefix"])

	// The graph must serialize with node references intact
	data, err := json.Marshal(workflow)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"person_image":["1",0]`)
	assert.Contains(t, string(data), `"garment_image":["2",0]`)
}
