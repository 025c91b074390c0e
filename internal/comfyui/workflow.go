package comfyui

import "math/rand"

// Node ids in the try-on workflow graph. The save node id is where the
// result image shows up in the history output.
const (
	customerImageNode = "1"
	garmentImageNode  = "2"
	tryOnNode         = "3"
	saveImageNode     = "4"

	resultFilenamePrefix = "tryon_result"
)

type WorkflowNode struct {
	Inputs    map[string]interface{} `json:"inputs"`
	ClassType string                 `json:"class_type"`
}

type PromptRequest struct {
	Prompt map[string]WorkflowNode `json:"prompt"`
}

// BuildTryOnWorkflow assembles the ComfyUI node graph for a single virtual
// try-on: load the customer photo and the garment image, run them through
// the try-on node, save the output.
func BuildTryOnWorkflow(customerImage, garmentImage string) PromptRequest {
	return PromptRequest{
		Prompt: map[string]WorkflowNode{
			customerImageNode: {
				Inputs: map[string]interface{}{
					"image":  customerImage,
					"upload": "image",
				},
				ClassType: "LoadImage",
			},
			garmentImageNode: {
				Inputs: map[string]interface{}{
					"image":  garmentImage,
					"upload": "image",
				},
				ClassType: "LoadImage",
			},
			tryOnNode: {
				Inputs: map[string]interface{}{
					"person_image":  []interface{}{customerImageNode, 0},
					"garment_image": []interface{}{garmentImageNode, 0},
					"seed":          rand.Intn(1000000),
					"steps":         20,
					"cfg":           7.0,
					"sampler_name":  "euler",
					"scheduler":     "normal",
					"denoise":       1.0,
				},
				ClassType: "VirtualTryOnNode",
			},
			saveImageNode: {
				Inputs: map[string]interface{}{
					"images":          []interface{}{tryOnNode, 0},
					"filename_prefix": resultFilenamePrefix,
				},
				ClassType: "SaveImage",
			},
		},
	}
}
