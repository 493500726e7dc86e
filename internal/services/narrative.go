package services

import (
	"fmt"

	"amazon-dashboard/internal/models"
)

var dataHandlingText = []models.TextBlock{
	{
		Bullets: []string{
			"Dataset Size: over 1.1 million product records.",
			"Efficient Storage: data is stored in a zstd-compressed columnar file for fast reads.",
			"Memory Optimization: category columns are dictionary encoded to reduce memory usage.",
			"Caching: the dataset is loaded once per process and shared by every request.",
			"User-Controlled Sampling: the sample size used for analysis is adjustable.",
			"Performance Metrics: data loading time and memory usage are displayed for transparency.",
		},
	},
	{
		Heading: "Challenges",
		Bullets: []string{
			"Processing and visualizing over a million records efficiently.",
			"Keeping the dashboard responsive and user-friendly.",
		},
	},
	{
		Heading: "Solutions",
		Bullets: []string{
			"Data Optimization: a columnar file format and compact column types.",
			"Caching: a loaded dataset and a columnar snapshot of CSV sources avoid repeated parsing.",
			"User-Controlled Sampling: users choose how much data the visualizations process.",
		},
	},
}

var keyInsightsText = []models.TextBlock{
	{
		Heading: "Category Distribution",
		Bullets: []string{
			"The Accessories category dominates the dataset, followed by Men's Clothing and Women's Clothing.",
			"Categories like Music and Pet Supplies have significantly fewer products.",
		},
	},
	{
		Heading: "Price Distribution Across Categories",
		Bullets: []string{
			"Most categories have a lower price range.",
			"Accessories, Men's Clothing and Men's Shoes have a broader range of prices with significant outliers.",
			"Products in the TV, Audio & Cameras category tend to have higher prices compared to others.",
		},
	},
	{
		Heading: "Discount Price vs Ratings",
		Bullets: []string{
			"Products with higher discounts appear across a wide range of ratings.",
			"Ratings cluster around 4.",
			"Even high-priced products with significant discounts can achieve high ratings.",
			"Customer satisfaction isn't directly tied to product cost.",
		},
	},
	{
		Heading: "Price Difference Impact on Ratings",
		Bullets: []string{
			"No strong linear relationship between price difference and the number of ratings.",
			"Products with a higher price difference tend to have more reviews.",
			"Heavily discounted products attract more customer attention and reviews.",
		},
	},
	{
		Heading: "Category-specific Rating Insights",
		Bullets: []string{
			"Grocery & Gourmet Foods and Pet Supplies tend to have higher average ratings.",
			"Men's Shoes and Home, Kitchen, Pets receive slightly lower average ratings.",
		},
	},
	{
		Heading: "Correlation Between Features",
		Bullets: []string{
			"Strong positive correlation between discount_price and actual_price (0.81).",
			"No significant correlation between ratings and pricing variables.",
			"Price may not directly influence customer satisfaction.",
		},
	},
	{
		Heading: "Subcategory Rating Analysis",
		Bullets: []string{
			"Air Conditioners, Grocery & Gourmet Foods and Music have higher ratings.",
			"Footwear and TV & Audio Accessories have lower ratings.",
		},
	},
	{
		Heading: "Product Name Analysis",
		Bullets: []string{
			"Common words in product names: Fit, T-Shirt, Regular, Running and Shoe.",
			"Fitness-related products and apparel are prevalent in the dataset.",
		},
	},
	{
		Heading: "Implications for Discount Strategy",
		Bullets: []string{
			"Products with larger price differences attract more customer reviews.",
			"Targeted discounts could increase customer interaction and potentially boost sales.",
		},
	},
}

func textPanels(blocks []models.TextBlock) []models.Panel {
	panels := make([]models.Panel, len(blocks))
	for i := range blocks {
		block := blocks[i]
		panels[i] = models.Panel{
			ID:   fmt.Sprintf("text-%d", i+1),
			Kind: models.PanelText,
			Text: &block,
		}
	}
	return panels
}
