package skeleton

// confusables maps visually deceptive code points to the ASCII they
// imitate. Sourced from the Unicode confusables data, trimmed to the
// scripts that appear in real homograph attacks against latin-script
// domains: Cyrillic, Greek, Hebrew, plus fullwidth forms and common
// digit lookalikes.
var confusables = map[rune]string{
	// Cyrillic lowercase
	'а': "a", // U+0430
	'б': "6",
	'в': "b",
	'г': "r",
	'д': "d",
	'е': "e", // U+0435
	'ё': "e",
	'з': "3",
	'и': "u",
	'і': "i", // U+0456
	'ї': "i",
	'ј': "j", // U+0458
	'к': "k",
	'м': "m",
	'н': "h",
	'о': "o", // U+043E
	'п': "n",
	'р': "p", // U+0440
	'с': "c", // U+0441
	'т': "t",
	'у': "y", // U+0443
	'ф': "f",
	'х': "x", // U+0445
	'ц': "u",
	'ч': "4",
	'ш': "w",
	'ь': "b",
	'э': "e",
	'ѕ': "s", // U+0455
	'ԁ': "d", // U+0501
	'ԛ': "q",
	'ԝ': "w",
	'һ': "h",
	'ғ': "f",

	// Cyrillic uppercase that survives lowercasing of mixed input
	'А': "a",
	'В': "b",
	'Е': "e",
	'К': "k",
	'М': "m",
	'Н': "h",
	'О': "o",
	'Р': "p",
	'С': "c",
	'Т': "t",
	'Х': "x",

	// Greek
	'α': "a",
	'β': "b",
	'γ': "y",
	'ε': "e",
	'η': "n",
	'ι': "i",
	'κ': "k",
	'ν': "v",
	'ο': "o", // U+03BF
	'ρ': "p",
	'σ': "o",
	'τ': "t",
	'υ': "u",
	'χ': "x",
	'ω': "w",
	'Α': "a",
	'Β': "b",
	'Ε': "e",
	'Ζ': "z",
	'Η': "h",
	'Ι': "i",
	'Κ': "k",
	'Μ': "m",
	'Ν': "n",
	'Ο': "o",
	'Ρ': "p",
	'Τ': "t",
	'Υ': "y",
	'Χ': "x",

	// Hebrew
	'ו': "i",
	'ן': "l",
	'ח': "n",
	'ט': "v",
	'ס': "o",
	'ץ': "y",

	// Fullwidth latin
	'ａ': "a", 'ｂ': "b", 'ｃ': "c", 'ｄ': "d", 'ｅ': "e", 'ｆ': "f",
	'ｇ': "g", 'ｈ': "h", 'ｉ': "i", 'ｊ': "j", 'ｋ': "k", 'ｌ': "l",
	'ｍ': "m", 'ｎ': "n", 'ｏ': "o", 'ｐ': "p", 'ｑ': "q", 'ｒ': "r",
	'ｓ': "s", 'ｔ': "t", 'ｕ': "u", 'ｖ': "v", 'ｗ': "w", 'ｘ': "x",
	'ｙ': "y", 'ｚ': "z",

	// Digit and punctuation lookalikes
	'０': "0", '１': "1", '２': "2", '３': "3", '４': "4",
	'５': "5", '６': "6", '７': "7", '８': "8", '９': "9",
	'ⅼ': "l",
	'Ɩ': "l",
	'ǀ': "l",
	'ı': "i",
	'ḷ': "l",
	'ᴏ': "o",
	'ᵽ': "p",
}
