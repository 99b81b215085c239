package llm

const postPrompt = `You are a data extraction assistant. Given a social media post about an NYC apartment sublet or rental, extract the following fields as JSON.

If a field cannot be determined from the text, use null. Be conservative and only extract what is clearly stated.

Return ONLY valid JSON with these exact keys:
{
  "title": "<short headline for the listing>",
  "price_monthly": <integer or null, monthly rent in USD. Convert weekly (x4.33) or nightly (x30) to monthly.>,
  "price_raw": "<original price string as written in the post>",
  "neighborhood": "<NYC neighborhood name, e.g. 'Midtown East', 'Lower East Side', 'Williamsburg'>",
  "borough": "<Manhattan|Brooklyn|Queens|Bronx|Staten Island|null>",
  "address": "<exact street address if mentioned, else null>",
  "listing_type": "<studio|1br|2br|3br+|room_in_shared|hotel_extended_stay|null>",
  "is_furnished": <true|false|null>,
  "available_from": "<YYYY-MM-DD or null>",
  "available_to": "<YYYY-MM-DD or null>",
  "description_summary": "<1-2 sentence summary of the listing>",
  "contact_info": "<email, phone, or 'DM' if they say to message them, else null>",
  "is_iso": <true if this is someone LOOKING for housing (not offering), false if offering>
}

Post text:
---
%s
---`

const pagePrompt = `You are a data extraction assistant. The text below is a search results page from %q listing NYC apartments, rooms and sublets. Extract every individual listing on the page.

Return ONLY a valid JSON array. Each element must have these exact keys, using null when a value is not stated:
{
  "title": "<listing headline>",
  "url": "<absolute link to the listing, or null>",
  "price_monthly": <integer or null, monthly rent in USD>,
  "price_raw": "<price as written>",
  "neighborhood": "<NYC neighborhood name>",
  "borough": "<Manhattan|Brooklyn|Queens|Bronx|Staten Island|null>",
  "address": "<street address or null>",
  "listing_type": "<studio|1br|2br|3br+|room_in_shared|hotel_extended_stay|null>",
  "is_furnished": <true|false|null>,
  "available_from": "<YYYY-MM-DD or null>",
  "available_to": "<YYYY-MM-DD or null>",
  "description_summary": "<1-2 sentence summary>",
  "contact_info": "<contact details or null>",
  "images": ["<image url>", ...]
}

Return [] if the page holds no listings.

Page:
---
%s
---`
