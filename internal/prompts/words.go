/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package prompts

var defaultLists = map[string][]string{
	"animals": {
		"cat", "dog", "elephant", "giraffe", "penguin", "octopus", "kangaroo", "snail",
		"owl", "shark", "turtle", "flamingo", "hedgehog", "crab", "butterfly", "camel",
		"dolphin", "frog", "lion", "peacock",
	},
	"food": {
		"pizza", "hamburger", "banana", "ice cream", "taco", "sushi", "pancake", "donut",
		"watermelon", "popcorn", "spaghetti", "cupcake", "pineapple", "hot dog", "carrot",
		"cheese", "pretzel", "broccoli", "sandwich", "cookie",
	},
	"objects": {
		"umbrella", "scissors", "lamp", "guitar", "bicycle", "clock", "telescope",
		"backpack", "candle", "key", "ladder", "glasses", "hammer", "balloon", "camera",
		"anchor", "toothbrush", "kite", "headphones", "teapot",
	},
	"places": {
		"beach", "castle", "volcano", "lighthouse", "library", "island", "desert",
		"airport", "farm", "igloo", "pyramid", "circus", "museum", "jungle", "bridge",
		"waterfall", "camping", "stadium", "cave", "bakery",
	},
	"activities": {
		"swimming", "juggling", "skiing", "fishing", "dancing", "painting", "surfing",
		"sleeping", "cooking", "gardening", "skateboarding", "reading", "bowling",
		"climbing", "singing", "knitting", "running", "yoga", "snowboarding", "sneezing",
	},
	"nature": {
		"rainbow", "tornado", "cactus", "mushroom", "snowflake", "sunflower", "mountain",
		"lightning", "palm tree", "moon", "river", "leaf", "cloud", "acorn", "rose",
		"wave", "comet", "iceberg", "forest", "puddle",
	},
}
