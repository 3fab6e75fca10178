// words.go

package game

// 内置词库，数据库词表不可用时作为兜底
var builtinWords = map[int][]string{
	3: {
		"cat", "dog", "sun", "hat", "map",
		"run", "box", "pen", "fun", "log",
		"car", "bus", "sky", "sea", "ice",
		"key", "fox", "owl", "bee", "ant",
	},
	4: {
		"word", "game", "play", "time", "gold",
		"fish", "bird", "tree", "star", "moon",
		"rain", "snow", "wind", "fire", "rock",
		"ship", "door", "book", "lamp", "ring",
		"king", "lion", "bear", "wolf", "frog",
	},
	5: {
		"apple", "brave", "chair", "dance", "eagle",
		"flame", "grape", "house", "image", "juice",
		"knife", "lemon", "mouse", "night", "ocean",
		"piano", "queen", "river", "stone", "tiger",
		"speed", "erase", "sound", "light", "cloud",
	},
	6: {
		"planet", "rocket", "singer", "tunnel", "violet",
		"window", "yellow", "zephyr", "anchor", "bridge",
		"candle", "dragon", "empire", "forest", "garden",
		"hammer", "island", "jungle", "kitten", "laptop",
	},
}

// BuiltinWords 返回指定长度的内置词库
func BuiltinWords(length int) []string {
	return builtinWords[length]
}

// BuiltinWordMap 返回按长度分组的全部内置词库
func BuiltinWordMap() map[int][]string {
	return builtinWords
}
